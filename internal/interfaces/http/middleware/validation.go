package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/crm/backend/internal/interfaces/http/dto"
)

// SetupValidator makes gin's validator report JSON (or form) field names
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			switch name {
			case "-":
				return ""
			case "":
				continue
			default:
				return name
			}
		}
		return ""
	})
}

// fieldMessages renders one failed rule. Length rules speak of characters
// for strings and of values otherwise.
var fieldMessages = map[string]func(e validator.FieldError) string{
	"required": func(validator.FieldError) string { return "This field is required" },
	"email":    func(validator.FieldError) string { return "Invalid email format" },
	"oneof": func(e validator.FieldError) string {
		return "Must be one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	},
	"min": func(e validator.FieldError) string { return "Must be at least " + e.Param() + unit(e) },
	"max": func(e validator.FieldError) string { return "Must be at most " + e.Param() + unit(e) },
	"gte": func(e validator.FieldError) string { return "Must be greater than or equal to " + e.Param() },
	"lte": func(e validator.FieldError) string { return "Must be less than or equal to " + e.Param() },
}

func unit(e validator.FieldError) string {
	if e.Kind() == reflect.String {
		return " characters"
	}
	return ""
}

// BindErrorDetails lists the rejected fields of a binding error. Syntax
// errors name no field and yield nil.
func BindErrorDetails(err error) []dto.ValidationDetail {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, e := range fieldErrs {
			msg := "Invalid value"
			if render, ok := fieldMessages[e.Tag()]; ok {
				msg = render(e)
			}
			details = append(details, dto.ValidationDetail{Field: e.Field(), Message: msg})
		}
		return details
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []dto.ValidationDetail{{
			Field:   typeErr.Field,
			Message: "Must be of type " + typeErr.Type.Kind().String(),
		}}
	}
	return nil
}

// HandleValidationError answers a failed bind: 413 when the body limit was
// hit while reading, otherwise 400 with per-field details when known.
func HandleValidationError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortTooLarge(c)
		return
	}

	details := BindErrorDetails(err)
	if details == nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInvalidJSON, "Request body is not valid JSON", getRequestID(c)))
			return
		}
	}
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
}
