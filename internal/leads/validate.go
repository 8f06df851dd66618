package leads

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report errors under the wire field names, not Go field names.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateCreate checks a contact submission against the form schema. It
// returns nil when the request is valid, otherwise a map of field name to
// every violated rule for that field. Validation itself never errors out of
// the request flow.
func ValidateCreate(req *CreateLeadRequest) map[string][]string {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// Non-field failure (bad schema wiring); report it generically.
		return map[string][]string{"_": {"invalid request"}}
	}

	fieldErrors := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		fieldErrors[field] = append(fieldErrors[field], messageFor(fe))
	}
	return fieldErrors
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", capitalize(fe.Field()))
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", capitalize(fe.Field()), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", capitalize(fe.Field()), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", capitalize(fe.Field()), strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("%s is invalid", capitalize(fe.Field()))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
