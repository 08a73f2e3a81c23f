package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/namity/backend/internal/service/validate"
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("slug", validateSlug)
	v.RegisterTagNameFunc(useJSONTagNames)
	return v
}

// Validate value with the same rules request bodies are validated with
func Validate(value any) error {
	return structValidator.Struct(value)
}

func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateSlug(fl validator.FieldLevel) bool {
	return validate.Slug(fl.Field().String()) == nil
}
