package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"dance-ops/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names in validation errors.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// JSON response helpers
func jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// requestError is a client mistake that maps to 400.
type requestError struct {
	msg    string
	fields map[string]string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is required")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	return validateStruct(dst)
}

func validateStruct(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return badRequest("invalid input")
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return &requestError{msg: "validation failed", fields: fields}
}

// pathID parses a uuid chi URL parameter.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}

// writeError maps domain errors to HTTP statuses. Anything unrecognized is logged and
// reported as 500 without details.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var reqErr *requestError
	var emailErr *models.EmailAlreadyExistsError

	switch {
	case errors.As(err, &reqErr):
		if len(reqErr.fields) > 0 {
			jsonResponse(w, http.StatusBadRequest, map[string]interface{}{"error": reqErr.msg, "fields": reqErr.fields})
			return
		}
		jsonError(w, http.StatusBadRequest, reqErr.msg)
	case errors.Is(err, models.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrNoSuchSession):
		jsonError(w, http.StatusNotFound, err.Error())
	case models.IsDuplicateEnrollment(err), errors.As(err, &emailErr):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrSectionFull),
		errors.Is(err, models.ErrNotEnrolled),
		errors.Is(err, models.ErrWaitlistEmpty),
		errors.Is(err, models.ErrNotWaitlisted):
		jsonError(w, http.StatusConflict, err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "internal server error")
	}
}
