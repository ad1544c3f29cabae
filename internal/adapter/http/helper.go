package http

import (
	"errors"
	"net/http"

	"chama-approvals/internal/domain/approval"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// domainErrors maps usecase sentinels to a status and a stable machine code.
var domainErrors = []struct {
	err    error
	status int
	code   string
}{
	{approval.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{approval.ErrInvalidAmount, http.StatusUnprocessableEntity, "INVALID_AMOUNT"},
	{approval.ErrInvalidType, http.StatusUnprocessableEntity, "INVALID_APPROVAL_TYPE"},
	{approval.ErrQuorumUnreachable, http.StatusUnprocessableEntity, "QUORUM_UNREACHABLE"},
	{approval.ErrUnauthorizedRequester, http.StatusForbidden, "UNAUTHORIZED_REQUESTER"},
	{approval.ErrNotAuthorizedSigner, http.StatusForbidden, "NOT_AUTHORIZED_SIGNER"},
	{approval.ErrNotGroupMember, http.StatusForbidden, "NOT_GROUP_MEMBER"},
	{approval.ErrDuplicateSignature, http.StatusConflict, "DUPLICATE_SIGNATURE"},
	{approval.ErrRequestNotPending, http.StatusConflict, "REQUEST_NOT_PENDING"},
	{approval.ErrAlreadyFinalized, http.StatusConflict, "ALREADY_FINALIZED"},
}

func writeError(c echo.Context, err error) error {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return c.JSON(m.status, ErrorResponse{Error: m.err.Error(), Code: m.code})
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("http: unhandled error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "INTERNAL"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Code:    "VALIDATION_FAILED",
		Details: ToFieldErrors(err),
	})
}
