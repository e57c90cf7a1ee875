package handler

import (
	"strings"

	"github.com/SergeiKhy/shorturls/internal/shortcode"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators регистрирует правила валидации запросов в движке gin
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	return v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
		return !shortcode.IsReservedForRoutes(fl.Field().String())
	})
}

// validationMessage собирает сообщения об ошибках полей через запятую
func validationMessage(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, fe := range errs {
		messages = append(messages, fieldMessage(fe))
	}
	return strings.Join(messages, ", ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "URL":
		return "URL cannot exceed 2048 characters"
	case "ShortCode":
		switch fe.Tag() {
		case "alphanum":
			return "Shortcode can only contain alphanumeric characters"
		case "notreserved":
			return "Shortcode cannot be a reserved word"
		default:
			return "Shortcode must be between 3 and 20 characters"
		}
	case "Validity":
		return "Validity must be between 1 and 525600 minutes (1 year)"
	default:
		return fe.Error()
	}
}
