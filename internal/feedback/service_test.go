package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edostavka/backend/internal/airtable"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
)

type fakeFeedbackTable struct {
	created []airtable.Fields
	err     error
}

func (f *fakeFeedbackTable) Create(ctx context.Context, fields airtable.Fields) (*airtable.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, fields)
	return &airtable.Record{ID: "recNew", Fields: fields}, nil
}

func TestSubmit(t *testing.T) {
	table := &fakeFeedbackTable{}
	svc, err := NewService(table)
	require.NoError(t, err)

	err = svc.Submit(context.Background(), SubmitInput{
		Topic:     TopicBugReport,
		Text:      "корзина не открывается",
		ErrorText: "TypeError: cart is undefined",
	})
	require.NoError(t, err)

	require.Len(t, table.created, 1)
	assert.Equal(t, TopicBugReport, table.created[0][fieldTopic])
	assert.Equal(t, "корзина не открывается", table.created[0][fieldText])
	assert.Equal(t, "TypeError: cart is undefined", table.created[0][fieldErrorText])
}

func TestSubmitOmitsEmptyErrorText(t *testing.T) {
	table := &fakeFeedbackTable{}
	svc, err := NewService(table)
	require.NoError(t, err)

	require.NoError(t, svc.Submit(context.Background(), SubmitInput{
		Topic: TopicQuestion,
		Text:  "когда появится доставка за город?",
	}))
	require.Len(t, table.created, 1)
	assert.NotContains(t, table.created[0], fieldErrorText)
}

func TestSubmitRequiresText(t *testing.T) {
	svc, err := NewService(&fakeFeedbackTable{})
	require.NoError(t, err)

	err = svc.Submit(context.Background(), SubmitInput{Topic: TopicOther})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSubmitWrapsTableFailure(t *testing.T) {
	table := &fakeFeedbackTable{err: pkgerrors.New(pkgerrors.CodeDependency, "airtable down")}
	svc, err := NewService(table)
	require.NoError(t, err)

	err = svc.Submit(context.Background(), SubmitInput{Topic: TopicOther, Text: "ошибка"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
