package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// TotalCountHeader carries the filtered item count of a list response.
const TotalCountHeader = "X-Total-Count"

// Envelope wraps error responses.
type Envelope struct {
	Error *appErrors.Error `json:"error"`
}

// JSON sends data as the bare response body, the way json-server does.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// List sends one page of items and the filtered total.
func List(c *gin.Context, items interface{}, total int) {
	c.Header(TotalCountHeader, strconv.Itoa(total))
	JSON(c, http.StatusOK, items)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.AbortWithStatusJSON(appErr.Status, Envelope{Error: appErr})
}
