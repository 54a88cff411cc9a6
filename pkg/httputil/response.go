package httputil

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/medconsult-api/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of delete confirmations.
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondWithError sends an error response. AppErrors keep their message and
// status; anything else is reported as a 500 without details.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	if appErr, ok := errors.As(err); ok {
		statusCode = appErr.StatusCode()
		if statusCode != http.StatusInternalServerError {
			message = appErr.Message
		}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, ErrorResponse{Error: message})
}

// RespondWithMessage sends a 200 with a message body.
func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, MessageResponse{Message: message})
}

// BindJSON decodes the request body into obj. An empty body leaves obj
// untouched so that required-field checks report the missing fields. A body
// cut off by the size limit is reported as too large.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.TooLarge(tooLarge.Limit, err)
		}
		return errors.BadRequest("Invalid request body", err)
	}
	return nil
}
