// Package response writes the JSON envelope shared by every endpoint:
// {"status", "data", "message", "success"} plus "errors" for field failures.
package response

import (
	"net/http"

	authErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
)

type Envelope struct {
	Status  int               `json:"status"`
	Data    any               `json:"data"`
	Message string            `json:"message"`
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func OK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{
		Status:  status,
		Data:    data,
		Message: message,
		Success: status < http.StatusBadRequest,
	})
}

// Fail writes a bare error envelope and aborts the chain.
func Fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Status: status, Message: message})
}

// Error maps a service error onto its HTTP status. Internal details never
// reach the client; they are attached to the gin context for the request logger.
func Error(c *gin.Context, err error) {
	status := StatusFor(err)
	env := Envelope{Status: status}

	switch status {
	case http.StatusInternalServerError:
		env.Message = "internal server error"
		_ = c.Error(err)
	case http.StatusUnauthorized:
		env.Message = authErrors.Message(err)
		if authErrors.IsInvalidToken(err) {
			env.Message = "invalid or expired token"
		}
	default:
		env.Message = authErrors.Message(err)
		env.Errors = authErrors.FieldErrors(err)
	}
	c.AbortWithStatusJSON(status, env)
}

func StatusFor(err error) int {
	switch {
	case authErrors.IsInvalidArgument(err):
		return http.StatusBadRequest
	case authErrors.IsInvalidCredentials(err), authErrors.IsInvalidToken(err):
		return http.StatusUnauthorized
	case authErrors.IsNotFound(err):
		return http.StatusNotFound
	case authErrors.IsAlreadyExists(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
