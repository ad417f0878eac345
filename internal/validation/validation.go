// Package validation checks decoded request bodies against their struct tags
// and turns failures into VALIDATION_ERROR responses with per-field details.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ytvaala/ytvaala/internal/apperr"
)

// Message is the top-level message of every validation error.
const Message = "Validation failed"

var dataURIImage = regexp.MustCompile(`^data:image/[a-zA-Z0-9.+-]+;base64,`)

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
	messages map[string]string
}

// New creates a Validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("datauri_image", func(fl validator.FieldLevel) bool {
		return dataURIImage.MatchString(fl.Field().String())
	})

	return &Validator{validate: v, messages: make(map[string]string)}
}

// RegisterStructValidation adds a cross-field rule for the given types.
// Rules report failures through StructLevel.ReportError with a custom tag;
// message is what clients see for that tag.
func (v *Validator) RegisterStructValidation(tag, message string, fn validator.StructLevelFunc, types ...any) {
	v.messages[tag] = message
	v.validate.RegisterStructValidation(fn, types...)
}

// Struct validates s. It returns nil or an *apperr.Error with code
// VALIDATION_ERROR whose details map JSON field paths to messages.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation(Message, nil).Wrap(err)
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fieldPath(fe)
		if _, exists := details[key]; exists {
			continue
		}
		details[key] = v.message(fe)
	}
	return apperr.Validation(Message, details)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func (v *Validator) message(fe validator.FieldError) string {
	if msg, ok := v.messages[fe.Tag()]; ok {
		return msg
	}

	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "datauri_image":
		return "must be a base64 image data URI"
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}
