package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chama-approvals/internal/adapter/middleware"
	"chama-approvals/internal/domain/approval"
	"chama-approvals/internal/domain/uow"
	"chama-approvals/internal/testutil/approvalmock"
	"chama-approvals/internal/testutil/directorymock"
	"chama-approvals/internal/testutil/uowmock"
	ucApproval "chama-approvals/internal/usecase/approval"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// -------- helpers --------

var reqID = strings.Repeat("a", 32)

func newEchoWithValidator() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func mustJSON(v any) *bytes.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// fakeRequests serves one pending request (reqID) needing `required` approvals.
func fakeRequests(required int) *approvalmock.RequestRepo {
	row := approval.Request{
		ID:                1,
		RequestID:         reqID,
		GroupID:           "g1",
		Type:              approval.TypeExpense,
		Amount:            decimal.NewFromInt(900),
		RequestedBy:       "chair",
		RequiredApprovals: required,
		Status:            approval.StatusPending,
		CreatedAt:         time.Now().UTC(),
	}
	get := func(_ context.Context, id string) (*approval.Request, error) {
		if id != row.RequestID {
			return nil, approval.ErrNotFound
		}
		cp := row
		return &cp, nil
	}
	return &approvalmock.RequestRepo{
		GetByRequestIDFn:          get,
		GetByRequestIDForUpdateFn: get,
		TransitionFn: func(_ context.Context, _ uint64, to approval.Status, reason approval.Reason, at time.Time) error {
			if row.Status != approval.StatusPending {
				return approval.ErrAlreadyFinalized
			}
			row.Status, row.Reason, row.FinalizedAt = to, &reason, &at
			return nil
		},
	}
}

func newHandler(reqs *approvalmock.RequestRepo, required int, signers ...string) *ApprovalHandler {
	sigs := (&approvalmock.Ledger{}).Repo()
	tx := uowmock.Passthrough(uow.Repos{Requests: reqs, Signatures: sigs})
	uc := ucApproval.NewUsecase(reqs, tx, directorymock.Static(required, signers...), nil)
	return NewApprovalHandler(uc)
}

func newCtx(e *echo.Echo, method, target string, body *bytes.Reader, member string) (echo.Context, *httptest.ResponseRecorder) {
	var req *stdhttp.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if member != "" {
		middleware.SetMemberID(c, member)
	}
	return c, rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("bad json: %v; raw=%s", err, rec.Body.String())
	}
	return er
}

func hasFieldDetail(details []FieldError, field, contains string) bool {
	return containsFieldMsg(details, field, contains)
}

// -------- create --------

func TestCreateApprovalRequest_Success(t *testing.T) {
	e := newEchoWithValidator()
	var saved *approval.Request
	reqs := &approvalmock.RequestRepo{
		CreateFn: func(_ context.Context, r *approval.Request) error { saved = r; return nil },
	}
	h := newHandler(reqs, 2, "chair", "treas", "sec")

	body := map[string]any{"approval_type": "EXPENSE", "amount": "1500.50", "description": "  tents  "}
	c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/groups/g1/approval-requests", mustJSON(body), "chair")
	c.SetParamNames("group_id")
	c.SetParamValues("g1")

	if err := h.CreateApprovalRequest(c); err != nil {
		t.Fatalf("CreateApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}

	var dto ucApproval.RequestDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if dto.GroupID != "g1" || dto.Status != approval.StatusPending || dto.RequiredApprovals != 2 {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.RequestedBy != "chair" || dto.Description != "tents" {
		t.Fatalf("requester/description not carried: %+v", dto)
	}
	if !dto.Amount.Equal(decimal.RequireFromString("1500.50")) {
		t.Fatalf("amount = %s", dto.Amount)
	}
	if saved == nil || saved.RequestID != dto.ID {
		t.Fatalf("request not persisted: %+v", saved)
	}
}

func TestCreateApprovalRequest_Unauthenticated(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&approvalmock.RequestRepo{}, 1, "chair")

	c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/groups/g1/approval-requests", mustJSON(map[string]any{}), "")
	c.SetParamNames("group_id")
	c.SetParamValues("g1")

	if err := h.CreateApprovalRequest(c); err != nil {
		t.Fatalf("CreateApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateApprovalRequest_MissingPathParam(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&approvalmock.RequestRepo{}, 1, "chair")

	c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/groups//approval-requests", mustJSON(map[string]any{}), "chair")
	// NOTE: do not set params

	if err := h.CreateApprovalRequest(c); err != nil {
		t.Fatalf("CreateApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if er := decodeError(t, rec); er.Error != "missing group_id path param" {
		t.Fatalf("error = %q", er.Error)
	}
}

func TestCreateApprovalRequest_BindError(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&approvalmock.RequestRepo{}, 1, "chair")

	req := httptest.NewRequest(stdhttp.MethodPost, "/api/v1/groups/g1/approval-requests", strings.NewReader(`{"amount":`)) // broken JSON
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("group_id")
	c.SetParamValues("g1")
	middleware.SetMemberID(c, "chair")

	if err := h.CreateApprovalRequest(c); err != nil {
		t.Fatalf("CreateApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if er := decodeError(t, rec); er.Error != "invalid body" {
		t.Fatalf("error = %q, want %q", er.Error, "invalid body")
	}
}

func TestCreateApprovalRequest_ValidationError(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&approvalmock.RequestRepo{}, 1, "chair") // usecase won't be called

	body := map[string]any{"approval_type": "BONUS", "amount": "10", "description": strings.Repeat("x", 1001)}
	c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/groups/g1/approval-requests", mustJSON(body), "chair")
	c.SetParamNames("group_id")
	c.SetParamValues("g1")

	if err := h.CreateApprovalRequest(c); err != nil {
		t.Fatalf("CreateApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	er := decodeError(t, rec)
	if er.Error != "validation failed" || er.Code != "VALIDATION_FAILED" {
		t.Fatalf("unexpected error payload: %+v", er)
	}
	if !hasFieldDetail(er.Details, "approval_type", "one of") || !hasFieldDetail(er.Details, "description", "at most 1000") {
		t.Fatalf("missing expected field errors: %+v", er.Details)
	}
}

func TestCreateApprovalRequest_InvalidAmount(t *testing.T) {
	for _, amount := range []any{"0", "-5", -5, "10.001", nil} {
		e := newEchoWithValidator()
		h := newHandler(&approvalmock.RequestRepo{}, 1, "chair")

		body := map[string]any{"approval_type": "EXPENSE"}
		if amount != nil {
			body["amount"] = amount
		}
		c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/groups/g1/approval-requests", mustJSON(body), "chair")
		c.SetParamNames("group_id")
		c.SetParamValues("g1")

		if err := h.CreateApprovalRequest(c); err != nil {
			t.Fatalf("CreateApprovalRequest(%v) error: %v", amount, err)
		}
		if rec.Code != stdhttp.StatusUnprocessableEntity {
			t.Fatalf("amount %v: status = %d, want 422", amount, rec.Code)
		}
		if er := decodeError(t, rec); er.Code != "INVALID_AMOUNT" {
			t.Fatalf("amount %v: code = %q, want INVALID_AMOUNT", amount, er.Code)
		}
	}
}

func TestCreateApprovalRequest_DomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		member   string
		signers  []string
		required int
		status   int
		code     string
	}{
		{"requester not allowed", "outsider", []string{"chair", "treas"}, 2, stdhttp.StatusForbidden, "UNAUTHORIZED_REQUESTER"},
		{"quorum larger than signer set", "chair", []string{"chair"}, 2, stdhttp.StatusUnprocessableEntity, "QUORUM_UNREACHABLE"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEchoWithValidator()
			h := newHandler(&approvalmock.RequestRepo{}, tc.required, tc.signers...)

			body := map[string]any{"approval_type": "LOAN", "amount": 300}
			c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/groups/g1/approval-requests", mustJSON(body), tc.member)
			c.SetParamNames("group_id")
			c.SetParamValues("g1")

			if err := h.CreateApprovalRequest(c); err != nil {
				t.Fatalf("CreateApprovalRequest error: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if er := decodeError(t, rec); er.Code != tc.code {
				t.Fatalf("code = %q, want %q", er.Code, tc.code)
			}
		})
	}
}

func TestCreateApprovalRequest_GenericError(t *testing.T) {
	e := newEchoWithValidator()
	reqs := &approvalmock.RequestRepo{
		CreateFn: func(context.Context, *approval.Request) error { return errors.New("insert failed") },
	}
	h := newHandler(reqs, 1, "chair")

	body := map[string]any{"approval_type": "LOAN", "amount": "10"}
	c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/groups/g1/approval-requests", mustJSON(body), "chair")
	c.SetParamNames("group_id")
	c.SetParamValues("g1")

	if err := h.CreateApprovalRequest(c); err != nil {
		t.Fatalf("CreateApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// storage details never leak to the client
	if er := decodeError(t, rec); er.Error != "internal error" {
		t.Fatalf("error = %q", er.Error)
	}
}

// -------- signatures --------

func signBody(approved any) *bytes.Reader {
	return mustJSON(map[string]any{"approval": reqID, "approved": approved, "comments": "ok"})
}

func TestSubmitSignature_ReachesQuorum(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(fakeRequests(2), 2, "chair", "treas", "sec")

	for i, member := range []string{"chair", "treas"} {
		c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/approval-signatures", signBody(true), member)
		if err := h.SubmitSignature(c); err != nil {
			t.Fatalf("SubmitSignature error: %v", err)
		}
		if rec.Code != stdhttp.StatusOK {
			t.Fatalf("vote %d: status = %d; body=%s", i, rec.Code, rec.Body.String())
		}
		var dto ucApproval.RequestDTO
		if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
			t.Fatalf("bad json: %v", err)
		}
		want := approval.StatusPending
		if i == 1 {
			want = approval.StatusApproved
		}
		if dto.Status != want || dto.ApprovalsCount != i+1 {
			t.Fatalf("vote %d: status=%s approvals=%d", i, dto.Status, dto.ApprovalsCount)
		}
		if dto.Signatures[i].SignerID != member || dto.Signatures[i].Outcome != ucApproval.OutcomeApproved {
			t.Fatalf("vote %d: signature not attributed to caller: %+v", i, dto.Signatures[i])
		}
	}

	// third official arrives after the decision
	c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/approval-signatures", signBody(false), "sec")
	if err := h.SubmitSignature(c); err != nil {
		t.Fatalf("SubmitSignature error: %v", err)
	}
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if er := decodeError(t, rec); er.Code != "REQUEST_NOT_PENDING" {
		t.Fatalf("code = %q", er.Code)
	}
}

func TestSubmitSignature_Errors(t *testing.T) {
	tests := []struct {
		name   string
		member string
		body   *bytes.Reader
		twice  bool
		status int
		code   string
	}{
		{"duplicate vote", "chair", signBody(true), true, stdhttp.StatusConflict, "DUPLICATE_SIGNATURE"},
		{"not a signer", "member-9", signBody(true), false, stdhttp.StatusForbidden, "NOT_AUTHORIZED_SIGNER"},
		{"unknown request", "chair", mustJSON(map[string]any{"approval": strings.Repeat("b", 32), "approved": true}), false, stdhttp.StatusNotFound, "NOT_FOUND"},
		{"approved missing", "chair", mustJSON(map[string]any{"approval": reqID}), false, stdhttp.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"bad request id", "chair", mustJSON(map[string]any{"approval": "REQ-1", "approved": true}), false, stdhttp.StatusUnprocessableEntity, "VALIDATION_FAILED"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEchoWithValidator()
			h := newHandler(fakeRequests(3), 3, "chair", "treas", "sec")

			payload := new(bytes.Buffer)
			if _, err := payload.ReadFrom(tc.body); err != nil {
				t.Fatalf("read body: %v", err)
			}
			if tc.twice {
				c, _ := newCtx(e, stdhttp.MethodPost, "/api/v1/approval-signatures", bytes.NewReader(payload.Bytes()), tc.member)
				if err := h.SubmitSignature(c); err != nil {
					t.Fatalf("first SubmitSignature error: %v", err)
				}
			}

			c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/approval-signatures", bytes.NewReader(payload.Bytes()), tc.member)
			if err := h.SubmitSignature(c); err != nil {
				t.Fatalf("SubmitSignature error: %v", err)
			}
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d; body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if er := decodeError(t, rec); er.Code != tc.code {
				t.Fatalf("code = %q, want %q", er.Code, tc.code)
			}
		})
	}
}

func TestSubmitSignature_Unauthenticated(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(fakeRequests(1), 1, "chair")

	c, rec := newCtx(e, stdhttp.MethodPost, "/api/v1/approval-signatures", signBody(true), "")
	if err := h.SubmitSignature(c); err != nil {
		t.Fatalf("SubmitSignature error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// -------- reads --------

func TestGetApprovalRequest(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(fakeRequests(2), 2, "chair", "treas")

	c, rec := newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests/"+reqID, nil, "chair")
	c.SetParamNames("request_id")
	c.SetParamValues(reqID)
	if err := h.GetApprovalRequest(c); err != nil {
		t.Fatalf("GetApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	for _, k := range []string{"id", "group_id", "approval_type", "amount", "status", "approvals_count",
		"rejections_count", "required_approvals", "requested_by", "created_at", "finalized_at", "signatures"} {
		if _, ok := body[k]; !ok {
			t.Fatalf("view missing %q: %v", k, body)
		}
	}
	if body["amount"] != "900" {
		t.Fatalf("amount should marshal as a decimal string, got %#v", body["amount"])
	}

	c, rec = newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests/nope", nil, "chair")
	c.SetParamNames("request_id")
	c.SetParamValues("nope")
	if err := h.GetApprovalRequest(c); err != nil {
		t.Fatalf("GetApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListApprovalRequests(t *testing.T) {
	e := newEchoWithValidator()
	var got approval.Filter
	reqs := &approvalmock.RequestRepo{
		ListFn: func(_ context.Context, f approval.Filter) ([]approval.Request, error) {
			got = f
			return []approval.Request{{ID: 1, RequestID: reqID, GroupID: f.GroupID, Status: approval.StatusPending}}, nil
		},
	}
	h := newHandler(reqs, 1, "chair")

	c, rec := newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests?group_id=g1&status=PENDING&limit=5&offset=10", nil, "chair")
	if err := h.ListApprovalRequests(c); err != nil {
		t.Fatalf("ListApprovalRequests error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	want := approval.Filter{GroupID: "g1", Status: approval.StatusPending, Limit: 5, Offset: 10}
	if got != want {
		t.Fatalf("filter = %+v, want %+v", got, want)
	}
	var out []ucApproval.RequestDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || len(out) != 1 {
		t.Fatalf("list body: %v, %d rows", err, len(out))
	}
}

func TestListApprovalRequests_Validation(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(&approvalmock.RequestRepo{}, 1, "chair")

	for _, target := range []string{
		"/api/v1/approval-requests",                         // no group
		"/api/v1/approval-requests?group_id=g1&status=DONE", // unknown status
		"/api/v1/approval-requests?group_id=g1&limit=1000",  // page too large
	} {
		c, rec := newCtx(e, stdhttp.MethodGet, target, nil, "chair")
		if err := h.ListApprovalRequests(c); err != nil {
			t.Fatalf("ListApprovalRequests error: %v", err)
		}
		if rec.Code != stdhttp.StatusUnprocessableEntity {
			t.Fatalf("%s: status = %d, want 422", target, rec.Code)
		}
	}

	c, rec := newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests?group_id=g1&limit=abc", nil, "chair")
	if err := h.ListApprovalRequests(c); err != nil {
		t.Fatalf("ListApprovalRequests error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("non-numeric limit: status = %d, want 400", rec.Code)
	}
}

func TestReads_OutsideGroup(t *testing.T) {
	e := newEchoWithValidator()
	listed := false
	reqs := fakeRequests(2)
	reqs.ListFn = func(context.Context, approval.Filter) ([]approval.Request, error) {
		listed = true
		return nil, nil
	}
	h := newHandler(reqs, 2, "chair", "treas")

	c, rec := newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests?group_id=g1", nil, "outsider")
	if err := h.ListApprovalRequests(c); err != nil {
		t.Fatalf("ListApprovalRequests error: %v", err)
	}
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("list: status = %d, want 403", rec.Code)
	}
	if er := decodeError(t, rec); er.Code != "NOT_GROUP_MEMBER" {
		t.Fatalf("list: code = %q", er.Code)
	}
	if listed {
		t.Fatalf("repository listed for a non-member")
	}

	c, rec = newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests/"+reqID, nil, "outsider")
	c.SetParamNames("request_id")
	c.SetParamValues(reqID)
	if err := h.GetApprovalRequest(c); err != nil {
		t.Fatalf("GetApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("get: status = %d, want 404", rec.Code)
	}
}

func TestReads_Unauthenticated(t *testing.T) {
	e := newEchoWithValidator()
	h := newHandler(fakeRequests(1), 1, "chair")

	c, rec := newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests?group_id=g1", nil, "")
	if err := h.ListApprovalRequests(c); err != nil {
		t.Fatalf("ListApprovalRequests error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("list: status = %d, want 401", rec.Code)
	}

	c, rec = newCtx(e, stdhttp.MethodGet, "/api/v1/approval-requests/"+reqID, nil, "")
	c.SetParamNames("request_id")
	c.SetParamValues(reqID)
	if err := h.GetApprovalRequest(c); err != nil {
		t.Fatalf("GetApprovalRequest error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("get: status = %d, want 401", rec.Code)
	}
}
