package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorStatus pairs a sentinel error with the HTTP rendition it maps to.
// A zero Sentinel makes the entry usable as a fallback.
type ErrorStatus struct {
	Sentinel error
	Code     int
	Message  string
}

// WriteError renders err using the first matching rendition. Errors no
// rendition claims fall back and are attached to the gin error list so the
// access logger records the cause without leaking it to the client.
func WriteError(c *gin.Context, err error, fallback ErrorStatus, known ...ErrorStatus) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	for _, rendition := range known {
		if rendition.Sentinel != nil && errors.Is(err, rendition.Sentinel) {
			c.JSON(rendition.Code, NewErrorResponse(c, rendition.Message))
			return
		}
	}

	_ = c.Error(err)

	code := fallback.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	c.JSON(code, NewErrorResponse(c, fallback.Message))
}
