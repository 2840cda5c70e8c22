// Package banners resolves marketing imagery stored in the banners table:
// notification icons, launch-screen artwork, promo plates.
package banners

import (
	"context"
	"fmt"

	"github.com/edostavka/backend/internal/airtable"
	"github.com/edostavka/backend/pkg/errors"
)

// Column names of the banners table.
const (
	fieldName  = "Название"
	fieldImage = "Плашка"
)

// Asset names the app looks up at startup.
const (
	NameOrangeSplash = "апельсин заставка"
	NameMelonSplash  = "арбуз заставка"
	NameOwnerLogo    = "лого владелец"
)

// SplashImages carries the launch-screen artwork URLs. Any field may be
// empty when the asset is missing from the base.
type SplashImages struct {
	Orange    string `json:"orange"`
	Melon     string `json:"melon"`
	OwnerLogo string `json:"owner_logo"`
}

type bannerTable interface {
	List(ctx context.Context, opts airtable.ListOptions) ([]airtable.Record, error)
}

type Service interface {
	// URLByName returns the attachment URL of the named banner, or ""
	// when no such banner exists.
	URLByName(ctx context.Context, name string) (string, error)
	SplashImages(ctx context.Context) (SplashImages, error)
}

type service struct {
	table bannerTable
}

func NewService(table bannerTable) (Service, error) {
	if table == nil {
		return nil, fmt.Errorf("banners table required")
	}
	return &service{table: table}, nil
}

func (s *service) URLByName(ctx context.Context, name string) (string, error) {
	records, err := s.table.List(ctx, airtable.ListOptions{
		Filter:     airtable.Eq(fieldName, name),
		MaxRecords: 1,
	})
	if err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "listing banners")
	}
	if len(records) == 0 {
		return "", nil
	}
	return records[0].Fields.AttachmentURL(fieldImage), nil
}

func (s *service) SplashImages(ctx context.Context) (SplashImages, error) {
	formula := airtable.Or(
		airtable.Eq(fieldName, NameOrangeSplash),
		airtable.Eq(fieldName, NameMelonSplash),
		airtable.Eq(fieldName, NameOwnerLogo),
	)
	records, err := s.table.List(ctx, airtable.ListOptions{Filter: formula})
	if err != nil {
		return SplashImages{}, errors.Wrap(errors.CodeDependency, err, "listing splash banners")
	}

	var out SplashImages
	for _, rec := range records {
		url := rec.Fields.AttachmentURL(fieldImage)
		switch rec.Fields.String(fieldName) {
		case NameOrangeSplash:
			out.Orange = url
		case NameMelonSplash:
			out.Melon = url
		case NameOwnerLogo:
			out.OwnerLogo = url
		}
	}
	return out, nil
}
