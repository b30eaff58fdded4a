package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/MrEthical07/authd"
	"github.com/MrEthical07/authd/internal/logging"
)

type errorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

type fieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type validationResponse struct {
	Errors []fieldError `json:"errors"`
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func statusFor(kind authd.Kind) int {
	switch kind {
	case authd.KindConflict:
		return http.StatusConflict
	case authd.KindUnauthorized:
		return http.StatusUnauthorized
	case authd.KindNotFound:
		return http.StatusNotFound
	case authd.KindTooManyRequests:
		return http.StatusTooManyRequests
	case authd.KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON response and aborts the chain. Unclassified and
// internal errors are logged and replaced by a generic message.
func (h *handlers) fail(c *gin.Context, err error) {
	var e *authd.Error
	if errors.As(err, &e) && e.Kind != authd.KindInternal {
		c.AbortWithStatusJSON(statusFor(e.Kind), errorResponse{Message: e.Message, ErrorCode: string(e.Code)})
		return
	}
	logging.LogError(c.Request.Context(), h.logger, "request failed", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Message: authd.InternalErrorMessage})
}

// bind decodes the JSON body into dst, writing a 400 on failure.
func (h *handlers) bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{Path: fe.Field(), Message: fieldMessage(fe)})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, validationResponse{Errors: out})
		return false
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body."})
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "eqfield":
		return "Passwords do not match."
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}
