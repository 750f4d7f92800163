package attendance

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	constants "github.com/nsut-attendance/backend/internal/constants"
)

var validate = newValidator()

// NewValidator returns a validator that knows the "isodate" tag and reports
// fields by their json names. It is shared with the HTTP layer.
func NewValidator() *validator.Validate { return newValidator() }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// ParseDate parses an ISO YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(constants.DateLayout, s, time.UTC)
}

// ValidationFromValidator converts validator output into a *ValidationError.
// Other errors are returned unchanged.
func ValidationFromValidator(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fieldPath(fe.Namespace())] = reason(fe)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath drops the leading struct name: "ReplaceRequest.entries[0].status" -> "entries[0].status".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must not be empty"
	case "gt":
		return "must be positive"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "isodate":
		return "must be a YYYY-MM-DD date"
	case "email":
		return "must be an email address"
	default:
		return "failed " + fe.Tag()
	}
}
