// Package reviews handles product reviews and the derived product rating.
package reviews

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

// Column names of the reviews table.
const (
	fieldEmail   = "почта"
	fieldProduct = "товар"
	fieldRating  = "оценка"
	fieldText    = "текст отзыва"
)

// Review is one published product review.
type Review struct {
	Rating    float64   `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitInput is a new review from a customer.
type SubmitInput struct {
	Email     string  `json:"email" validate:"required,email"`
	ProductID string  `json:"product_id" validate:"required"`
	Rating    float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Text      string  `json:"text"`
}

type reviewTable interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
	Create(ctx context.Context, fields airtable.Fields) (*airtable.Record, error)
}

type ratingUpdater interface {
	UpdateRating(ctx context.Context, productID string, rating float64) error
}

type Service interface {
	// Submit publishes the review and recomputes the product's rating.
	Submit(ctx context.Context, input SubmitInput) error
	ListForProduct(ctx context.Context, productID string) ([]Review, error)
	// ReviewedProductIDs returns the IDs of products the user already
	// reviewed, so the app does not prompt twice.
	ReviewedProductIDs(ctx context.Context, email string) ([]string, error)
}

type service struct {
	table   reviewTable
	catalog ratingUpdater
	logger  *logger.Logger
}

func NewService(table reviewTable, catalog ratingUpdater, logg *logger.Logger) (Service, error) {
	if table == nil {
		return nil, fmt.Errorf("reviews table required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("reviews rating updater required")
	}
	if logg == nil {
		return nil, fmt.Errorf("reviews logger required")
	}
	return &service{table: table, catalog: catalog, logger: logg}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) error {
	if input.Rating < 1 || input.Rating > 5 {
		return errors.New(errors.CodeValidation, "rating must be between 1 and 5")
	}
	_, err := s.table.Create(ctx, airtable.Fields{
		fieldEmail:   input.Email,
		fieldProduct: []string{input.ProductID},
		fieldRating:  input.Rating,
		fieldText:    input.Text,
	})
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "creating review")
	}

	// The product card shows a stale rating until the next catalog poll
	// anyway, so a recompute failure does not fail the submission.
	if err := s.recomputeRating(ctx, input.ProductID, input.Rating); err != nil {
		s.logger.Error(s.logger.WithField(ctx, "product_id", input.ProductID), "recomputing product rating", err)
	}
	return nil
}

func (s *service) ListForProduct(ctx context.Context, productID string) ([]Review, error) {
	records, err := s.table.List(ctx, airtable.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing reviews")
	}

	out := make([]Review, 0)
	for _, rec := range records {
		if !linksTo(rec, productID) {
			continue
		}
		out = append(out, Review{
			Rating:    rec.Fields.Float(fieldRating),
			Text:      rec.Fields.String(fieldText),
			CreatedAt: rec.CreatedTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *service) ReviewedProductIDs(ctx context.Context, email string) ([]string, error) {
	records, err := s.table.List(ctx, airtable.ListOptions{
		Filter: airtable.Eq(fieldEmail, email),
		Fields: []string{fieldProduct},
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "listing user reviews")
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		for _, id := range rec.Fields.StringSlice(fieldProduct) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// recomputeRating stores the mean of all reviews for the product, rounded
// to one decimal and capped at 5. With no reviews visible yet the
// submitted value stands in.
func (s *service) recomputeRating(ctx context.Context, productID string, submitted float64) error {
	all, err := s.ListForProduct(ctx, productID)
	if err != nil {
		return err
	}

	rating := submitted
	if len(all) > 0 {
		var total float64
		for _, review := range all {
			total += review.Rating
		}
		rating = math.Round(total/float64(len(all))*10) / 10
		if rating > 5 {
			rating = 5
		}
	}
	return s.catalog.UpdateRating(ctx, productID, rating)
}

func linksTo(rec airtable.Record, productID string) bool {
	for _, id := range rec.Fields.StringSlice(fieldProduct) {
		if id == productID {
			return true
		}
	}
	return false
}
