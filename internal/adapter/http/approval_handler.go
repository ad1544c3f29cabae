package http

import (
	"net/http"
	"strings"

	"chama-approvals/internal/adapter/middleware"
	"chama-approvals/internal/domain/approval"
	ucApproval "chama-approvals/internal/usecase/approval"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ApprovalHandler struct{ uc *ucApproval.Usecase }

func NewApprovalHandler(uc *ucApproval.Usecase) *ApprovalHandler { return &ApprovalHandler{uc: uc} }

// Amount is checked by the usecase so that a bad amount always reports INVALID_AMOUNT.
type createApprovalReq struct {
	Type        string          `json:"approval_type"  validate:"required,approvaltype"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"    validate:"max=1000"`
}

type listApprovalsReq struct {
	GroupID string `json:"group_id"  query:"group_id"  validate:"required,max=64"`
	Status  string `json:"status"    query:"status"    validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Limit   int    `json:"limit"     query:"limit"     validate:"gte=0,lte=200"`
	Offset  int    `json:"offset"    query:"offset"    validate:"gte=0"`
}

type signatureReq struct {
	// Approval is the public id of the request being signed.
	Approval string `json:"approval"  validate:"required,hex32"`
	Approved *bool  `json:"approved"  validate:"required"`
	Comments string `json:"comments"  validate:"max=1000"`
}

// CreateApprovalRequest: POST /groups/:group_id/approval-requests
func (h *ApprovalHandler) CreateApprovalRequest(c echo.Context) error {
	memberID := middleware.MemberID(c)
	if memberID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
	}
	groupID := strings.TrimSpace(c.Param("group_id"))
	if groupID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing group_id path param"})
	}

	var req createApprovalReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	dto, err := h.uc.Create(c.Request().Context(), ucApproval.CreateInput{
		GroupID:     groupID,
		Type:        approval.Type(req.Type),
		Amount:      req.Amount,
		Description: strings.TrimSpace(req.Description),
		RequestedBy: memberID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

// ListApprovalRequests: GET /approval-requests?group_id=&status=&limit=&offset=
func (h *ApprovalHandler) ListApprovalRequests(c echo.Context) error {
	memberID := middleware.MemberID(c)
	if memberID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
	}

	var req listApprovalsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	out, err := h.uc.List(c.Request().Context(), memberID, approval.Filter{
		GroupID: req.GroupID,
		Status:  approval.Status(req.Status),
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GetApprovalRequest: GET /approval-requests/:request_id
func (h *ApprovalHandler) GetApprovalRequest(c echo.Context) error {
	memberID := middleware.MemberID(c)
	if memberID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
	}
	requestID := strings.TrimSpace(c.Param("request_id"))
	if requestID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing request_id path param"})
	}
	dto, err := h.uc.Get(c.Request().Context(), requestID, memberID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// SubmitSignature: POST /approval-signatures. The signer is always the caller.
func (h *ApprovalHandler) SubmitSignature(c echo.Context) error {
	memberID := middleware.MemberID(c)
	if memberID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
	}

	var req signatureReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	dto, err := h.uc.SubmitSignature(c.Request().Context(), ucApproval.SignInput{
		RequestID: req.Approval,
		SignerID:  memberID,
		Approved:  *req.Approved,
		Comments:  strings.TrimSpace(req.Comments),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
