// Package api exposes the orchestrator's HTTP surface: read-only status
// endpoints over the latest planning cycle, and the mutating endpoints
// operators and workers use to drive jobs and sessions.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taxdeedflow/orchestrator/pkg/orchestrator/support/util/exception"
)

// APIError is the wire form of a request failure.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope wraps an APIError.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondOK writes a 200 response with the given payload.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondError writes an error envelope with the given status and code.
func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondDomainError maps a domain error onto its HTTP status by error kind.
// This is the single place the kind-to-status mapping lives.
func RespondDomainError(c *gin.Context, err error) {
	kind := exception.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case exception.KindInvalidInput:
		status = http.StatusBadRequest
	case exception.KindInvalidTransition:
		status = http.StatusConflict
	case exception.KindNotFound:
		status = http.StatusNotFound
	case exception.KindOutOfRange:
		status = http.StatusUnprocessableEntity
	}
	RespondError(c, status, string(kind), err)
}
