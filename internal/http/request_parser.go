package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input that never reached validation.
var errBadRequest = errors.New("bad request")

// decodeJSON reads exactly one JSON value into dst. Unknown fields are
// rejected so typos in patch bodies do not silently no-op.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		default:
			return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

// pathID parses the named chi URL parameter as a uuid.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return id, nil
}

// currencyParam returns the normalized ?currency= value, or "" for all currencies.
func currencyParam(r *http.Request) (string, error) {
	raw := sanitizeInput(r.URL.Query().Get("currency"))
	if raw == "" {
		return "", nil
	}
	c := core.NormalizeCurrency(raw)
	if !core.ValidCurrency(c) {
		return "", fmt.Errorf("%w: invalid currency %q", core.ErrValidation, raw)
	}
	return c, nil
}

// sanitizeInput drops control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
