package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/Baaaki/yamdb/internal/service"
	"github.com/Baaaki/yamdb/internal/utils"
	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// RegisterValidators makes binding errors name fields by their JSON key.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var derr *service.DeliveryError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"code":   verr.Code,
			"fields": verr.Fields,
		})
	case errors.Is(err, service.ErrDuplicateReview):
		writeError(c, http.StatusBadRequest, "Conflict", err)
	case errors.Is(err, service.ErrInvalidCode):
		writeError(c, http.StatusBadRequest, "InvalidCode", err)
	case errors.Is(err, service.ErrUnknownUser):
		writeError(c, http.StatusNotFound, "UnknownUser", err)
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, "NotFound", err)
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(c, http.StatusUnauthorized, "NotAuthenticated", err)
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(c, http.StatusForbidden, "PermissionDenied", err)
	case errors.Is(err, utils.ErrExpiredToken):
		writeError(c, http.StatusUnauthorized, "TokenExpired", err)
	case errors.Is(err, utils.ErrInvalidToken):
		writeError(c, http.StatusUnauthorized, "InvalidToken", err)
	case errors.As(err, &derr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "The confirmation code could not be sent. Please try again later.",
			"code":  "DeliveryError",
		})
	default:
		logger.Log.Error("Unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
			"code":  "Internal",
		})
	}
}

func writeError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

// respondBindError turns a binding failure into the same field map services use.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := &service.ValidationError{Code: service.CodeInvalid}
		for _, fe := range verrs {
			out.Add(fe.Field(), fieldMessage(fe))
		}
		respondError(c, out)
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		respondError(c, service.NewValidationError(service.CodeInvalid, typeErr.Field, fmt.Sprintf("Expected %s.", typeErr.Type.String())))
	case errors.As(err, &syntaxErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON body", "code": "ParseError"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": "ParseError"})
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

// MethodNotAllowed answers verbs a route does not support.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": fmt.Sprintf("Method %q not allowed.", c.Request.Method),
		"code":  "MethodNotAllowed",
	})
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "Not found.",
		"code":  "NotFound",
	})
}
