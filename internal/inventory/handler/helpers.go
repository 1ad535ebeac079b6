package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kardex-service/internal/fileio"
	"kardex-service/internal/inventory/model"
)

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps engine errors to HTTP statuses.
func statusOf(err error) int {
	var ve validator.ValidationErrors
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrProductNotFound),
		errors.Is(err, model.ErrPendingNotFound),
		errors.Is(err, model.ErrNothingToRevert):
		return http.StatusNotFound
	case errors.Is(err, model.ErrHasHistory),
		errors.Is(err, model.ErrLaterMovementsExist),
		errors.Is(err, model.ErrNoRecentImport),
		errors.Is(err, model.ErrInsufficientStock),
		errors.Is(err, model.ErrDuplicateCode):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidQuantity),
		errors.Is(err, model.ErrInvalidFactor),
		errors.Is(err, model.ErrInvalidSettings),
		errors.Is(err, model.ErrInvalidProduct),
		errors.Is(err, fileio.ErrMissingColumn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fileio.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		body.Error = "validation failed"
		for _, fe := range ve {
			body.Fields = append(body.Fields, fe.Namespace()+":"+fe.Tag())
		}
	}
	if status >= 500 {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		body.Error = "internal"
	}
	writeJSON(w, status, body)
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return badRequest("invalid json: %v", err)
	}
	return h.validate.Struct(v)
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func toBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

// parseDate accepts RFC 3339 or a plain YYYY-MM-DD.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, badRequest("invalid date %q", s)
	}
	return t, nil
}
