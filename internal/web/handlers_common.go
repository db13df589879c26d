package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/intake/internal/web/middleware"
)

// validate caches struct metadata and is safe for concurrent use.
var validate = newValidator()

// newValidator reports JSON field names instead of Go names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// sessionID returns the session route parameter.
func sessionID(r *http.Request) string {
	return chi.URLParam(r, middleware.SessionParam)
}

// decodeJSON reads the body into v and runs its validate tags. An empty body
// decodes as the zero value when allowEmpty is set.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)
	dec := json.NewDecoder(body)

	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &requestError{
				status: http.StatusRequestEntityTooLarge,
				msg:    fmt.Sprintf("request body too large (limit %d bytes)", tooLarge.Limit),
			}
		case errors.Is(err, io.EOF) && allowEmpty:
		case errors.Is(err, io.EOF):
			return badRequest("invalid request body", errors.New("body is empty"))
		default:
			return badRequest("invalid request body", err)
		}
	}

	if err := validate.Struct(v); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			return badRequest("validation failed", errors.New(describe(invalid)))
		}
		return badRequest("validation failed", err)
	}
	return nil
}

// describe renders validator errors as "field: rule" pairs using JSON names.
func describe(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, field+": "+rule)
	}
	return strings.Join(parts, "; ")
}
