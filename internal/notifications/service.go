// Package notifications delivers in-app messages to customers. Rows live
// in the notifications table, linked to customers; read marks are kept in
// the session store because the base has no per-user read column.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

// Column names of the notifications table.
const (
	fieldText     = "текст уведомления"
	fieldIcon     = "иконка"
	fieldCustomer = "Table 1"
	fieldSentAt   = "время отправления"
)

// deliveredBannerName is the icon asset for delivery notifications.
const deliveredBannerName = "увед доставлен"

// Notification is one message shown in the user's feed.
type Notification struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	IconURL   string    `json:"icon_url"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

type notificationTable interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	CreateRecords(ctx context.Context, fieldsList []airtable.Fields) ([]airtable.Record, error)
}

type bannerResolver interface {
	URLByName(ctx context.Context, name string) (string, error)
}

type readMarkStore interface {
	AddMember(ctx context.Context, key string, members ...any) error
	Members(ctx context.Context, key string) ([]string, error)
	ReadNotificationsKey(userID string) string
}

type Service interface {
	// ListForUser returns the user's notifications, newest first, with
	// read marks applied.
	ListForUser(ctx context.Context, userID string) ([]Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkAllRead(ctx context.Context, userID string) error
	// NotifyDelivered creates the "order delivered" message. It is a
	// no-op when the icon banner is missing from the base.
	NotifyDelivered(ctx context.Context, customerID string, total float64, createdAt time.Time) error
}

type service struct {
	table   notificationTable
	banners bannerResolver
	marks   readMarkStore
	logger  *logger.Logger
}

func NewService(table notificationTable, banners bannerResolver, marks readMarkStore, logg *logger.Logger) (Service, error) {
	if table == nil {
		return nil, fmt.Errorf("notifications table required")
	}
	if banners == nil {
		return nil, fmt.Errorf("notifications banner resolver required")
	}
	if marks == nil {
		return nil, fmt.Errorf("notifications read-mark store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("notifications logger required")
	}
	return &service{table: table, banners: banners, marks: marks, logger: logg}, nil
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	records, err := s.table.List(ctx, airtable.ListOptions{
		Filter:    airtable.FindInJoined(userID, fieldCustomer),
		SortField: fieldSentAt,
		SortDesc:  true,
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing notifications")
	}

	read, err := s.readSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]Notification, 0, len(records))
	for _, rec := range records {
		_, isRead := read[rec.ID]
		out = append(out, Notification{
			ID:        rec.ID,
			Text:      rec.Fields.String(fieldText),
			IconURL:   rec.Fields.AttachmentURL(fieldIcon),
			CreatedAt: rec.CreatedTime,
			Read:      isRead,
		})
	}
	return out, nil
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	items, err := s.ListForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range items {
		if !item.Read {
			count++
		}
	}
	return count, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) error {
	items, err := s.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	ids := make([]any, 0, len(items))
	for _, item := range items {
		if !item.Read {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.marks.AddMember(ctx, s.marks.ReadNotificationsKey(userID), ids...); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "marking notifications read")
	}
	return nil
}

func (s *service) NotifyDelivered(ctx context.Context, customerID string, total float64, createdAt time.Time) error {
	if customerID == "" {
		return errors.New(errors.CodeValidation, "customer id is required")
	}

	iconURL, err := s.banners.URLByName(ctx, deliveredBannerName)
	if err != nil {
		return err
	}
	if iconURL == "" {
		// Without the icon the app renders a broken card, so skip.
		s.logger.Warn(s.logger.WithUserID(ctx, customerID), "delivered-notification icon banner missing, skipping")
		return nil
	}

	text := fmt.Sprintf("Ваш заказ на сумму %.0f ₽ от %s доставлен!", total, createdAt.Format("15:04"))
	_, err = s.table.CreateRecords(ctx, []airtable.Fields{{
		fieldText:     text,
		fieldCustomer: []string{customerID},
		fieldIcon:     []any{map[string]any{"url": iconURL}},
	}})
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating delivered notification")
	}
	return nil
}

func (s *service) readSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	members, err := s.marks.Members(ctx, s.marks.ReadNotificationsKey(userID))
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "loading read marks")
	}
	set := make(map[string]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	return set, nil
}
