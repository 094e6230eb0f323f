package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/coopledger/coopledger/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag validation and converts the first failure into a
// shared.ValidationError keyed by the JSON-facing field name.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return shared.Validation(toSnake(fe.Field()), "failed "+fe.Tag()+" check")
	}
	return shared.Validation("", err.Error())
}

// ActorID returns the acting user attached by the identity middleware.
func ActorID(r *http.Request) (int64, error) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok || actor.ID <= 0 {
		return 0, ErrUnauthorized
	}
	return actor.ID, nil
}

// PathID parses a positive int64 URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// DateLayout is the calendar date format accepted in request payloads.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD payload field.
func ParseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, shared.Validation(field, "expected YYYY-MM-DD")
	}
	return t, nil
}

// PeriodParam reads a YYYY-MM query parameter, defaulting to fallback when
// absent.
func PeriodParam(r *http.Request, name string, fallback shared.Period) (shared.Period, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	return shared.ParsePeriod(raw)
}

func toSnake(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			if prevLower {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
			prevLower = false
		} else {
			prevLower = true
		}
		b.WriteRune(r)
	}
	return b.String()
}
