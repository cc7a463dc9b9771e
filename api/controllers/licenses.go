package controllers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/soundlease/soundlease-backend/api/responses"
	"github.com/soundlease/soundlease-backend/api/validators"
	"github.com/soundlease/soundlease-backend/internal/licenses"
	pkgerrors "github.com/soundlease/soundlease-backend/pkg/errors"
	"github.com/soundlease/soundlease-backend/pkg/logger"
)

type licenseIssueRequest struct {
	Licensee     string `json:"licensee" validate:"required,eth_addr"`
	LicenseType  int    `json:"license_type" validate:"min=0,max=4"`
	DurationDays uint64 `json:"duration_days" validate:"required,min=1"`
	Title        string `json:"title" validate:"required,max=200"`
	Artist       string `json:"artist" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=2000"`
	Terms        string `json:"terms" validate:"max=5000"`
}

// LicenseList returns every license the queried account appears on.
func LicenseList(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		account := strings.TrimSpace(r.URL.Query().Get("account"))
		if account == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "account query parameter is required"))
			return
		}

		filter, ok := licenses.ParseFilter(r.URL.Query().Get("filter"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "filter must be one of all, creator, licensee, active, inactive"))
			return
		}

		items, err := svc.ListForAccount(r.Context(), account, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"account":  account,
			"filter":   filter,
			"licenses": items,
		})
	}
}

// LicenseIssue handles the multipart issuance form: text fields plus a
// required audio file and an optional image.
func LicenseIssue(svc licenses.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		payload, err := issueRequestFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.ValidateStruct(payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := licenses.IssueInput{
			Licensee:     payload.Licensee,
			LicenseType:  payload.LicenseType,
			DurationDays: payload.DurationDays,
			Title:        payload.Title,
			Artist:       payload.Artist,
			Description:  payload.Description,
			Terms:        payload.Terms,
		}

		audio, audioHeader, err := r.FormFile("audio")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "audio file is required"))
			return
		}
		defer audio.Close()
		input.Audio = uploadFromPart(audio, audioHeader)

		if image, imageHeader, err := r.FormFile("image"); err == nil {
			defer image.Close()
			input.Image = uploadFromPart(image, imageHeader)
		}

		result, err := svc.Issue(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// LicenseDeactivate submits the one-way deactivation call.
func LicenseDeactivate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		licenseID := chi.URLParam(r, "licenseId")
		txHash, err := svc.Deactivate(r.Context(), licenseID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{
			"license_id": licenseID,
			"tx_hash":    txHash,
		})
	}
}

func issueRequestFromForm(r *http.Request) (licenseIssueRequest, error) {
	licenseType, err := strconv.Atoi(strings.TrimSpace(formValueDefault(r, "license_type", "0")))
	if err != nil {
		return licenseIssueRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "license_type must be an integer")
	}
	duration, err := strconv.ParseUint(strings.TrimSpace(formValueDefault(r, "duration_days", "0")), 10, 64)
	if err != nil {
		return licenseIssueRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "duration_days must be a positive integer")
	}
	return licenseIssueRequest{
		Licensee:     strings.TrimSpace(r.FormValue("licensee")),
		LicenseType:  licenseType,
		DurationDays: duration,
		Title:        r.FormValue("title"),
		Artist:       r.FormValue("artist"),
		Description:  r.FormValue("description"),
		Terms:        r.FormValue("terms"),
	}, nil
}

func formValueDefault(r *http.Request, key, fallback string) string {
	if value := r.FormValue(key); value != "" {
		return value
	}
	return fallback
}

func uploadFromPart(file multipart.File, header *multipart.FileHeader) *licenses.Upload {
	return &licenses.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
	}
}
