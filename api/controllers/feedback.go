package controllers

import (
	"net/http"

	"github.com/edostavka/backend/api/responses"
	"github.com/edostavka/backend/api/validators"
	"github.com/edostavka/backend/internal/feedback"
	"github.com/edostavka/backend/pkg/logger"
)

// SubmitFeedback files a report from the in-app feedback form.
func SubmitFeedback(svc feedback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload feedback.SubmitInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Submit(r.Context(), payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"submitted": true})
	}
}
