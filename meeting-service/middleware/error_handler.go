package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"meetdesk-backend/shared/apperror"
	"meetdesk-backend/shared/metrics"
	"meetdesk-backend/shared/store"
	"meetdesk-backend/shared/utils/response"
)

const msgSomethingWrong = "Something went wrong"

// ErrorHandler renders the last error pushed with c.Error as an error envelope.
// In production unclassified 5xx errors are reported with a generic message.
func ErrorHandler(production bool, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, message, errs := Classify(err)
		if status >= http.StatusInternalServerError {
			m.IncError("http")
			log.Printf("❌ %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
			if _, operational := apperror.As(err); production && !operational {
				message = msgSomethingWrong
			}
		}

		detail := ""
		if !production {
			detail = err.Error()
		}
		response.Failure(c, status, message, errs, detail)
	}
}

// Recovery turns panics into a 500 envelope
func Recovery(production bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("❌ Panic recovered on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		detail := ""
		if !production {
			detail = fmt.Sprint(recovered)
		}
		response.Failure(c, http.StatusInternalServerError, msgSomethingWrong, nil, detail)
	})
}

// Classify maps an error to its HTTP status, client message and optional field errors
func Classify(err error) (int, string, interface{}) {
	if appErr, ok := apperror.As(err); ok {
		return appErr.StatusCode, appErr.Message, appErr.Errors
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, fieldMessage(fe))
		}
		return http.StatusBadRequest, "Validation Error", fields
	}

	if field, ok := decodeErrorField(err); ok {
		return http.StatusBadRequest, "Validation Error", []string{field}
	}

	var dupErr *store.DuplicateError
	if errors.As(err, &dupErr) {
		field := dupErr.Field
		if field == "" {
			field = "value"
		}
		return http.StatusBadRequest, fmt.Sprintf("Duplicate field: %s. Please use another value.", field), nil
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired. Please log in again.", nil
	case isJWTError(err):
		return http.StatusUnauthorized, "Invalid token. Please log in again.", nil
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Resource not found", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "Resource was modified by another request", nil
	}

	return http.StatusInternalServerError, err.Error(), nil
}

func isJWTError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenNotValidYet,
		jwt.ErrSignatureInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func decodeErrorField(err error) (string, bool) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var timeErr *time.ParseError

	switch {
	case errors.Is(err, io.EOF):
		return "request body is required", true
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "request body is not valid JSON", true
	case errors.As(err, &typeErr):
		return fmt.Sprintf("%s has an invalid type", typeErr.Field), true
	case errors.As(err, &timeErr):
		return fmt.Sprintf("%q is not a valid date", timeErr.Value), true
	}
	return "", false
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "len":
		return fmt.Sprintf("%s must be %s characters long", field, fe.Param())
	case "numeric":
		return field + " must contain only digits"
	case "uuid":
		return field + " must be a valid id"
	}
	return fmt.Sprintf("%s is invalid", field)
}

// UseJSONFieldNames makes binding errors report json tag names instead of Go field names
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		name := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return sf.Name
		}
		return name
	})
}
