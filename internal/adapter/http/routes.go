package http

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts health at the root and the approval API under api.
// Authentication and idempotency middleware belong on api itself.
func RegisterRoutes(e *echo.Echo, api *echo.Group, h *Handler, ah *ApprovalHandler) {
	e.GET("/health", h.Health)

	api.POST("/groups/:group_id/approval-requests", ah.CreateApprovalRequest)
	api.GET("/approval-requests", ah.ListApprovalRequests)
	api.GET("/approval-requests/:request_id", ah.GetApprovalRequest)
	api.POST("/approval-signatures", ah.SubmitSignature)
}
