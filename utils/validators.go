package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/amirbiron/prompt-enhancer/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// MaxTagLength caps one tag label; tags are short codes or emoji, not
// sentences.
const MaxTagLength = 64

var Validate *validator.Validate

func InitValidator() {
	Validate = validator.New()
	Validate.RegisterValidation("tag", ValidateTagRule)
	Validate.RegisterValidation("category", ValidateCategoryRule)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("tag", ValidateTagRule)
		v.RegisterValidation("category", ValidateCategoryRule)
	}
}

func ValidateTagRule(fl validator.FieldLevel) bool {
	return ValidateTag(fl.Field().String())
}

func ValidateCategoryRule(fl validator.FieldLevel) bool {
	return model.IsValidCategory(fl.Field().String())
}

// ValidateTag reports whether tag is a usable label: non-blank and within
// the length cap. Any content is otherwise allowed; tags are opaque.
func ValidateTag(tag string) bool {
	trimmed := strings.TrimSpace(tag)
	if trimmed == "" {
		return false
	}
	return utf8.RuneCountInString(trimmed) <= MaxTagLength
}
