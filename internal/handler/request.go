package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/auth"
)

// maxBodyBytes caps every JSON request body. A 500-character message plus
// a chat transcript fits comfortably.
const maxBodyBytes = 256 << 10

var validate = newValidator()

// newValidator reports fields by their JSON name so messages read
// "role must be one of: user assistant" rather than "Role ...".
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads r's body into dst and runs its `validate` tags.
//
// An empty body decodes to the zero value, so a DELETE without a body fails
// with the service's own "... ID is required" message rather than a
// generic JSON error. Business rules (trimming, 500-character limit, emote
// vocabulary) belong to the services; tags here only cover shape.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperror.ValidationFailed("body", "Request body too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperror.ValidationFailed(fe.Field(), describe(fe))
		}
		return fmt.Errorf("handler: validating request: %w", err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", fe.Field(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

// caller returns the identity RequireAuth put in the context.
func caller(r *http.Request) (auth.Identity, error) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, apperror.Unauthorized()
	}
	return id, nil
}
