package response

import (
	"time"

	"github.com/gin-gonic/gin"
	apiError "github.com/techagentng/clubhub/errors"
)

// JSON writes the standard envelope. err may be nil, an *errors.Error or
// any other error.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	body := gin.H{
		"message":   message,
		"data":      data,
		"errors":    renderError(err),
		"status":    status,
		"timestamp": time.Now().Format("2006-01-02 15:04:05"),
	}
	c.JSON(status, body)
}

// Error writes err with the status carried by its kind.
func Error(c *gin.Context, message string, err error) {
	e := apiError.As(err)
	JSON(c, message, e.Status, nil, e)
}

func renderError(err error) interface{} {
	if err == nil {
		return nil
	}
	if e, ok := err.(*apiError.Error); ok {
		return e
	}
	return err.Error()
}
