// Package feedback forwards beta-program reports to the feedback table.
package feedback

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/pkg/errors"
)

// Column names of the feedback table.
const (
	fieldTopic     = "тема обращения"
	fieldText      = "текст"
	fieldErrorText = "текст ошибки"
)

// Topics offered in the feedback form.
const (
	TopicImprovement = "Предложение по улучшению"
	TopicBugReport   = "Сообщение об ошибке"
	TopicQuestion    = "Вопрос"
	TopicOther       = "Другое"
)

// SubmitInput is one report from the feedback form. ErrorText carries the
// app error the user saw, when there is one.
type SubmitInput struct {
	Topic     string `json:"topic" validate:"required"`
	Text      string `json:"text" validate:"required"`
	ErrorText string `json:"error_text"`
}

type feedbackTable interface {
	Create(ctx context.Context, fields airtable.Fields) (*airtable.Record, error)
}

type Service interface {
	Submit(ctx context.Context, input SubmitInput) error
}

type service struct {
	table feedbackTable
}

func NewService(table feedbackTable) (Service, error) {
	if table == nil {
		return nil, fmt.Errorf("feedback table required")
	}
	return &service{table: table}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) error {
	if input.Text == "" {
		return errors.New(errors.CodeValidation, "Пожалуйста, заполните основное поле описания.")
	}

	fields := airtable.Fields{
		fieldTopic: input.Topic,
		fieldText:  input.Text,
	}
	if input.ErrorText != "" {
		fields[fieldErrorText] = input.ErrorText
	}
	if _, err := s.table.Create(ctx, fields); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "Не удалось отправить обращение. Пожалуйста, попробуйте позже.")
	}
	return nil
}
