package controllers

import (
	"net/http"

	"github.com/edostavka/backend/api/responses"
	"github.com/edostavka/backend/internal/banners"
	pkgerrors "github.com/edostavka/backend/pkg/errors"
	"github.com/edostavka/backend/pkg/logger"
)

// SplashImages serves the launch-screen artwork in one response.
func SplashImages(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		images, err := svc.SplashImages(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, images)
	}
}

// BannerByName resolves one named banner to its image URL.
func BannerByName(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "name query parameter is required"))
			return
		}
		url, err := svc.URLByName(r.Context(), name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if url == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "banner not found"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"name": name, "url": url})
	}
}
