package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	admissiondomain "github.com/opentribe/membership/internal/admission/domain"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	invitationdomain "github.com/opentribe/membership/internal/invitation/domain"
	membershipdomain "github.com/opentribe/membership/internal/membership/domain"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	"github.com/opentribe/membership/internal/providers/payment"
	"github.com/opentribe/membership/pkg/validate"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string                `json:"type"`
	Message string                `json:"message"`
	Reason  string                `json:"reason,omitempty"`
	Errors  []validate.FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
)

// PolicyRejectionError carries an admission gate rejection to the client. It
// is not a fault; the member can correct the form and retry.
type PolicyRejectionError struct {
	Reason admissiondomain.Reason
}

func (e *PolicyRejectionError) Error() string {
	return "signup rejected: " + string(e.Reason)
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return validate.New("request", "invalid_request", "invalid request")
}

func mapError(err error) (int, errorPayload) {
	var vErr *validate.ValidationError
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Fields,
		}
	}

	var rejection *PolicyRejectionError
	if errors.As(err, &rejection) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "policy_rejection",
			Message: "signup rejected",
			Reason:  string(rejection.Reason),
		}
	}

	var providerErr *payment.ProviderError
	if errors.As(err, &providerErr) {
		// The gateway message reaches the member verbatim.
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "provider_error",
			Message: providerErr.Message,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, membershipdomain.ErrAlreadyMember),
		errors.Is(err, invitationdomain.ErrExhausted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	return errors.Is(err, persondomain.ErrNotFound) ||
		errors.Is(err, communitydomain.ErrNotFound) ||
		errors.Is(err, invitationdomain.ErrNotFound) ||
		errors.Is(err, membershipdomain.ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound)
}
