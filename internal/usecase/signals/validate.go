package signals

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

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

// validateEvent returns a human-readable reason when the event cannot be recorded.
func validateEvent(ev *ClickEvent) string {
	err := validate.Struct(ev)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		msg := msgForTag(fe)
		if seen[msg] {
			continue
		}
		seen[msg] = true
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_without":
		return "postId or roomId is required"
	default:
		return fe.Field() + " failed on '" + fe.Tag() + "' validation"
	}
}
