package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/bairdservice/baird-backend/pkg/errors"
	"github.com/bairdservice/baird-backend/pkg/security"
)

// MaxBodyBytes caps every JSON request body. Notify and accept bodies are a
// single short field.
const MaxBodyBytes = 16 << 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	if err := v.RegisterValidation("acceptance_token", func(fl validator.FieldLevel) bool {
		return security.IsAcceptanceToken(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// DecodeJSONBody strictly decodes one JSON object into dest and runs its
// validate tags. Every failure is a CodeValidation error; field failures are
// reported as details keyed by json name.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return decodeError(err)
	}
	if decoder.More() {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body must contain a single JSON object")
	}

	var fieldErrs validator.ValidationErrors
	switch err := validate.Struct(dest); {
	case err == nil:
		return nil
	case errors.As(err, &fieldErrs):
		details := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fieldMessage(fe)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a valid uuid"
	case "acceptance_token":
		return "must be a 32 character hex token"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}
