package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scholarloop/scholarloop/internal/apierr"
	"github.com/scholarloop/scholarloop/internal/entitlement"
)

type APIError struct {
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func respondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// respondError writes err in the error envelope with a status derived from
// its kind. Internal errors are not echoed to the client.
func respondError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	status := apierr.HTTPStatus(kind)
	code := string(kind)

	var denied *entitlement.Error
	if errors.As(err, &denied) {
		code = string(denied.Reason)
		if denied.Reason == entitlement.ReasonQuotaExceeded {
			status = http.StatusTooManyRequests
		}
	}

	msg := err.Error()
	if kind == apierr.KindInternal {
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message:     msg,
			Code:        code,
			Remediation: apierr.RemediationOf(err),
		},
	})
}
