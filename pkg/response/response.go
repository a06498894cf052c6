package response

import (
	"encoding/json"
	"net/http"

	appErr "ignite-service/pkg/errors"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Body struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Remediation string `json:"remediation,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Raw wraps an already encoded payload, so replayed results stay byte-identical.
func Raw(c *gin.Context, status int, payload json.RawMessage) {
	JSON(c, status, payload)
}

func JSON(c *gin.Context, status int, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, Body{
		Status:     StatusSuccess,
		StatusCode: status,
		Data:       data,
	})
}

// Error writes the error envelope for err; unknown errors become INTERNAL.
func Error(c *gin.Context, err error) {
	e := appErr.From(err)
	message := e.Message
	if e != appErr.ErrInternal {
		message = err.Error()
	}
	c.AbortWithStatusJSON(e.Status, Body{
		Status:     StatusError,
		StatusCode: e.Status,
		Error: &ErrorBody{
			Code:        e.Code,
			Message:     message,
			Remediation: e.Remediation,
		},
	})
}
