/*
handlers_test.go - HTTP-level tests for the API

Tests for:
- Status code mapping (404/409/400) of domain errors
- Member and tontine CRUD over the wire
- Meeting recording and its conflict on re-recording
- Credit request and repayment
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tontine-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewRouter(NewHandler(store))
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func createMember(t *testing.T, router http.Handler, name string) MemberDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/members", CreateMemberRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decodeBody[MemberDTO](t, rec)
}

func createTontine(t *testing.T, router http.Handler, kind, amount string) TontineDTO {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/tontines", map[string]any{
		"kind":                kind,
		"contribution_amount": amount,
		"start_date":          "2025-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decodeBody[TontineDTO](t, rec)
}

func enroll(t *testing.T, router http.Handler, tontineID, memberID int64, parts int) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/tontines/%d/enroll", tontineID),
		EnrollRequest{MemberID: memberID, Parts: parts})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
}

// =============================================================================
// MEMBERS
// =============================================================================

func TestMembers_CreateAndGet(t *testing.T) {
	router := newTestRouter(t)

	member := createMember(t, router, "Awa Diallo")
	assert.NotZero(t, member.ID)
	assert.Equal(t, "active", member.Status)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/members/%d", member.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[MemberDTO](t, rec)
	assert.Equal(t, "Awa Diallo", got.Name)
}

func TestMembers_MissingNameRejected(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/members", CreateMemberRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMembers_GetUnknownIs404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/members/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody[ErrorResponse](t, rec)
	assert.NotEmpty(t, body.Error)
}

func TestMembers_BadIDIs400(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/members/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// TONTINES AND ENROLLMENT
// =============================================================================

func TestTontines_InvalidKindRejected(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/tontines", map[string]any{
		"kind":                "weekly",
		"contribution_amount": "10000",
		"start_date":          "2025-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnroll_DuplicateIs409(t *testing.T) {
	router := newTestRouter(t)
	member := createMember(t, router, "Alice")
	tn := createTontine(t, router, "optional", "10000")

	enroll(t, router, tn.ID, member.ID, 2)

	rec := doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/tontines/%d/enroll", tn.ID),
		EnrollRequest{MemberID: member.ID, Parts: 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRoster_ListsEnrolledMembers(t *testing.T) {
	router := newTestRouter(t)
	alice := createMember(t, router, "Alice")
	bob := createMember(t, router, "Bob")
	tn := createTontine(t, router, "presence", "10000")
	enroll(t, router, tn.ID, alice.ID, 1)
	enroll(t, router, tn.ID, bob.ID, 1)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/tontines/%d/roster", tn.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roster := decodeBody[[]RosterEntryDTO](t, rec)
	assert.Len(t, roster, 2)
}

// =============================================================================
// SESSION FLOW
// =============================================================================

func TestRecordMeeting_FullFlowOverHTTP(t *testing.T) {
	// GIVEN: Two enrolled members and a scheduled session
	// WHEN: Recording the meeting with one absentee
	// THEN: One contribution and one penalty; re-recording is a conflict

	router := newTestRouter(t)
	alice := createMember(t, router, "Alice")
	bob := createMember(t, router, "Bob")
	tn := createTontine(t, router, "presence", "10000")
	enroll(t, router, tn.ID, alice.ID, 1)
	enroll(t, router, tn.ID, bob.ID, 1)

	rec := doJSON(t, router, http.MethodPost, "/api/sessions", map[string]any{
		"tontine_id": tn.ID,
		"date":       "2025-03-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	sess := decodeBody[SessionDTO](t, rec)

	recordURL := fmt.Sprintf("/api/sessions/%d/record", sess.ID)
	payload := map[string]any{
		"records": []map[string]any{
			{"member_id": alice.ID, "present": true, "amount_paid": "10000"},
			{"member_id": bob.ID, "present": false},
		},
	}

	rec = doJSON(t, router, http.MethodPost, recordURL, payload)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	result := decodeBody[MeetingResultDTO](t, rec)
	assert.Equal(t, 1, result.ContributionsCreated)
	assert.Equal(t, 1, result.PenaltiesCreated)
	assert.Equal(t, "held", result.Status)

	// A held session cannot be recorded again
	rec = doJSON(t, router, http.MethodPost, recordURL, payload)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/sessions/%d/close", sess.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
}

// =============================================================================
// CREDITS
// =============================================================================

func TestCredits_RequestAndRepay(t *testing.T) {
	router := newTestRouter(t)
	member := createMember(t, router, "Alice")

	rec := doJSON(t, router, http.MethodPost, "/api/credits", map[string]any{
		"member_id":    member.ID,
		"principal":    "10000",
		"rate":         "10",
		"requested_on": "2025-02-01",
		"due_on":       "2025-05-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	credit := decodeBody[CreditDTO](t, rec)
	assert.Equal(t, "active", credit.Status)
	assert.Equal(t, "11000", credit.Balance.String())

	rec = doJSON(t, router, http.MethodPost,
		fmt.Sprintf("/api/credits/%d/repay", credit.ID),
		map[string]any{"amount_paid": "11000"})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	credit = decodeBody[CreditDTO](t, rec)
	assert.Equal(t, "repaid", credit.Status)
	assert.True(t, credit.Balance.IsZero())
}

// =============================================================================
// PLUMBING
// =============================================================================

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
