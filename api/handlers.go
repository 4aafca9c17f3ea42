/*
handlers.go - HTTP API handlers for the tontine engine

PURPOSE:
  Exposes the tontine engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every business rule to the engines.

ENDPOINTS:
  Members:
    GET    /api/members                   List members
    POST   /api/members                   Register member
    GET    /api/members/{id}              Get member
    PUT    /api/members/{id}              Update member
    DELETE /api/members/{id}              Delete member
    GET    /api/members/{id}/statement    Financial statement
    GET    /api/members/{id}/tontines     Tontine participations

  Tontines:
    GET    /api/tontines                  List tontines
    POST   /api/tontines                  Create tontine
    GET    /api/tontines/{id}             Get tontine
    PUT    /api/tontines/{id}             Update tontine
    DELETE /api/tontines/{id}             Delete tontine
    GET    /api/tontines/{id}/roster      Members with parts
    POST   /api/tontines/{id}/enroll      Enroll a member
    GET    /api/tontines/{id}/eligible    Payout-eligible members
    GET    /api/tontines/{id}/next-number Next tour number

  Sessions:
    GET    /api/sessions                  List (filter: ?tontine_id=)
    POST   /api/sessions                  Schedule session
    GET    /api/sessions/{id}             Get session
    PUT    /api/sessions/{id}             Update date/location/notes
    POST   /api/sessions/{id}/record      Record meeting (issues entries)
    POST   /api/sessions/{id}/close       Finalize held session
    POST   /api/sessions/{id}/cancel      Cancel session
    GET    /api/sessions/{id}/attendance  Attendance sheet
    GET    /api/sessions/{id}/report      Meeting minutes report

  Contributions, penalties, credits, tours, projects: CRUD plus the
  lifecycle operations (repay, reclassify, allocate, complete).

  Reports:
    GET    /api/reports/dashboard         Global snapshot
    GET    /api/reports/synthesis         Assembly synthesis

ERROR HANDLING:
  Engine failures map by kind:
  - 400: InvalidArgument (malformed input, rule violation on values)
  - 404: NotFound (missing entity)
  - 409: Conflict (duplicate enrollment/beneficiary, illegal transition)
  - 500: everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - tontine/: Engines that own the business rules
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warp/tontine-engine/tontine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store tontine.TxStore

	enrollment *tontine.EnrollmentEngine
	sessions   *tontine.SessionEngine
	credits    *tontine.CreditEngine
	rotation   *tontine.RotationEngine
	projects   *tontine.ProjectEngine
	reports    *tontine.AggregationEngine
}

// NewHandler creates a new handler with the given store.
func NewHandler(store tontine.TxStore) *Handler {
	return &Handler{
		Store:      store,
		enrollment: &tontine.EnrollmentEngine{Store: store},
		sessions:   &tontine.SessionEngine{Store: store},
		credits:    &tontine.CreditEngine{Store: store},
		rotation:   &tontine.RotationEngine{Store: store},
		projects:   &tontine.ProjectEngine{Store: store},
		reports:    &tontine.AggregationEngine{Store: store},
	}
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// ListMembers returns all members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Store.ListMembers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list members", err)
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetMember returns a single member.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.Store.GetMember(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get member")
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// CreateMember registers a new member.
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	if req.EnrolledOn.IsZero() {
		req.EnrolledOn = tontine.Today()
	}

	m := tontine.Member{
		Name:       req.Name,
		FirstName:  req.FirstName,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		Commune:    req.Commune,
		Status:     tontine.MemberActive,
		EnrolledOn: req.EnrolledOn,
	}
	if err := h.Store.CreateMember(r.Context(), &m); err != nil {
		writeDomainError(w, err, "Failed to create member")
		return
	}
	writeJSON(w, http.StatusCreated, toMemberDTO(m))
}

// UpdateMember applies a partial update to a member.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	upd := tontine.MemberUpdate{
		Name:      req.Name,
		FirstName: req.FirstName,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Commune:   req.Commune,
	}
	if req.Status != nil {
		status := tontine.MemberStatus(*req.Status)
		if status != tontine.MemberActive && status != tontine.MemberInactive {
			writeError(w, http.StatusBadRequest, "status must be active or inactive", nil)
			return
		}
		upd.Status = &status
	}

	m, err := h.Store.UpdateMember(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err, "Failed to update member")
		return
	}
	writeJSON(w, http.StatusOK, toMemberDTO(m))
}

// DeleteMember removes a member.
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteMember(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMemberStatement returns a member's financial position.
func (h *Handler) GetMemberStatement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.reports.MemberStatementFor(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to build statement")
		return
	}

	dto := MemberStatementDTO{
		Member:            toMemberDTO(st.Member),
		Contributions:     []ContributionDTO{},
		TotalContributed:  st.TotalContributed,
		OutstandingCredit: st.OutstandingCredit,
		UnpaidPenalties:   st.UnpaidPenalties,
		NetBalance:        st.NetBalance,
	}
	for _, c := range st.Contributions {
		dto.Contributions = append(dto.Contributions, toContributionDTO(c))
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetMemberParticipations returns every tontine a member belongs to.
func (h *Handler) GetMemberParticipations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	parts, err := h.enrollment.Participations(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to list participations")
		return
	}

	dtos := make([]ParticipationDTO, len(parts))
	for i, p := range parts {
		dtos[i] = ParticipationDTO{Tontine: toTontineDTO(p.Tontine), Parts: p.Parts}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TONTINE HANDLERS
// =============================================================================

// ListTontines returns all tontines.
func (h *Handler) ListTontines(w http.ResponseWriter, r *http.Request) {
	tontines, err := h.Store.ListTontines(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tontines", err)
		return
	}

	dtos := make([]TontineDTO, len(tontines))
	for i, t := range tontines {
		dtos[i] = toTontineDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTontine returns a single tontine.
func (h *Handler) GetTontine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.Store.GetTontine(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get tontine")
		return
	}
	writeJSON(w, http.StatusOK, toTontineDTO(t))
}

// CreateTontine creates a new tontine.
func (h *Handler) CreateTontine(w http.ResponseWriter, r *http.Request) {
	var req CreateTontineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kind := tontine.TontineKind(req.Kind)
	if kind != tontine.KindPresence && kind != tontine.KindOptional {
		writeError(w, http.StatusBadRequest, "kind must be presence or optional", nil)
		return
	}
	if !req.ContributionAmount.IsPositive() {
		writeError(w, http.StatusBadRequest, "contribution_amount must be > 0", nil)
		return
	}

	t := tontine.Tontine{
		Kind:               kind,
		ContributionAmount: req.ContributionAmount,
		Period:             req.Period,
		Description:        req.Description,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		Status:             tontine.TontineActive,
	}
	if err := h.Store.CreateTontine(r.Context(), &t); err != nil {
		writeDomainError(w, err, "Failed to create tontine")
		return
	}
	writeJSON(w, http.StatusCreated, toTontineDTO(t))
}

// UpdateTontine applies a partial update to a tontine.
func (h *Handler) UpdateTontine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateTontineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ContributionAmount != nil && !req.ContributionAmount.IsPositive() {
		writeError(w, http.StatusBadRequest, "contribution_amount must be > 0", nil)
		return
	}

	upd := tontine.TontineUpdate{
		ContributionAmount: req.ContributionAmount,
		Period:             req.Period,
		Description:        req.Description,
		EndDate:            req.EndDate,
	}
	if req.Status != nil {
		status := tontine.TontineStatus(*req.Status)
		if status != tontine.TontineActive && status != tontine.TontineClosed {
			writeError(w, http.StatusBadRequest, "status must be active or closed", nil)
			return
		}
		upd.Status = &status
	}

	t, err := h.Store.UpdateTontine(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err, "Failed to update tontine")
		return
	}
	writeJSON(w, http.StatusOK, toTontineDTO(t))
}

// DeleteTontine removes a tontine.
func (h *Handler) DeleteTontine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteTontine(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete tontine")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Enroll registers a member in a tontine.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	tontineID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	parts, err := h.enrollment.Enroll(r.Context(), req.MemberID, tontineID, req.Parts)
	if err != nil {
		writeDomainError(w, err, "Failed to enroll member")
		return
	}
	writeJSON(w, http.StatusCreated, EnrollmentDTO{
		MemberID:  req.MemberID,
		TontineID: tontineID,
		Parts:     parts,
	})
}

// GetRoster returns a tontine's members with parts and expected amounts.
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	tontineID, ok := pathID(w, r)
	if !ok {
		return
	}
	roster, err := h.enrollment.Roster(r.Context(), tontineID)
	if err != nil {
		writeDomainError(w, err, "Failed to build roster")
		return
	}

	dtos := make([]RosterEntryDTO, len(roster))
	for i, e := range roster {
		dtos[i] = RosterEntryDTO{
			Member:               toMemberDTO(e.Member),
			Parts:                e.Parts,
			ExpectedContribution: e.ExpectedContribution,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEligible returns the members still awaiting a payout.
func (h *Handler) GetEligible(w http.ResponseWriter, r *http.Request) {
	tontineID, ok := pathID(w, r)
	if !ok {
		return
	}
	members, err := h.rotation.EligibleBeneficiaries(r.Context(), tontineID)
	if err != nil {
		writeDomainError(w, err, "Failed to list eligible members")
		return
	}

	dtos := make([]MemberDTO, len(members))
	for i, m := range members {
		dtos[i] = toMemberDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetNextTourNumber returns the next free payout number.
func (h *Handler) GetNextTourNumber(w http.ResponseWriter, r *http.Request) {
	tontineID, ok := pathID(w, r)
	if !ok {
		return
	}
	next, err := h.rotation.NextTourNumber(r.Context(), tontineID)
	if err != nil {
		writeDomainError(w, err, "Failed to compute next number")
		return
	}
	writeJSON(w, http.StatusOK, NextNumberDTO{TontineID: tontineID, NextNumber: next})
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// ListSessions returns sessions, optionally filtered by ?tontine_id=.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	var filter tontine.SessionFilter
	if q := r.URL.Query().Get("tontine_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tontine_id", err)
			return
		}
		filter.TontineID = &id
	}

	sessions, err := h.Store.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions", err)
		return
	}

	dtos := make([]SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSession returns a single session.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.Store.GetSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// CreateSession schedules a session.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, err := h.Store.GetTontine(r.Context(), req.TontineID); err != nil {
		writeDomainError(w, err, "Failed to create session")
		return
	}

	s := tontine.Session{
		TontineID: req.TontineID,
		Date:      req.Date,
		Location:  req.Location,
		Status:    tontine.SessionScheduled,
		Notes:     req.Notes,
	}
	if err := h.Store.CreateSession(r.Context(), &s); err != nil {
		writeDomainError(w, err, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, toSessionDTO(s))
}

// UpdateSession changes a session's date, location, or notes. Status moves
// only through the record/close/cancel endpoints.
func (h *Handler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.Store.UpdateSession(r.Context(), id, tontine.SessionUpdate{
		Date:     req.Date,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to update session")
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// RecordMeeting records the attendance sheet for a scheduled session.
func (h *Handler) RecordMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RecordMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records := make([]tontine.MeetingRecord, len(req.Records))
	for i, rec := range req.Records {
		records[i] = tontine.MeetingRecord{
			MemberID:   rec.MemberID,
			Present:    rec.Present,
			AmountPaid: rec.AmountPaid,
		}
	}

	result, err := h.sessions.RecordMeeting(r.Context(), id, records, req.AbsencePenalty)
	if err != nil {
		writeDomainError(w, err, "Failed to record meeting")
		return
	}
	writeJSON(w, http.StatusOK, MeetingResultDTO{
		SessionID:            result.SessionID,
		Status:               string(result.Status),
		ContributionsCreated: result.ContributionsCreated,
		PenaltiesCreated:     result.PenaltiesCreated,
		TotalContributions:   result.TotalContributions,
		TotalPenalties:       result.TotalPenalties,
		Penalties:            toPenaltyDTOs(result.Penalties),
	})
}

// CloseSession finalizes a held session.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.sessions.CloseSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to close session")
		return
	}
	writeJSON(w, http.StatusOK, CloseResultDTO{
		SessionID:          result.SessionID,
		Status:             string(result.Status),
		TotalContributions: result.TotalContributions,
		TotalPenalties:     result.TotalPenalties,
		Penalties:          toPenaltyDTOs(result.Penalties),
	})
}

// CancelSession cancels a scheduled or held session.
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.CancelSession(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to cancel session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAttendance returns the attendance sheet for a session.
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	roster, err := h.sessions.Attendance(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to build attendance sheet")
		return
	}

	dtos := make([]RosterEntryDTO, len(roster))
	for i, e := range roster {
		dtos[i] = RosterEntryDTO{
			Member:               toMemberDTO(e.Member),
			Parts:                e.Parts,
			ExpectedContribution: e.ExpectedContribution,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSessionReport returns the meeting minutes report.
func (h *Handler) GetSessionReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	report, err := h.reports.SessionReportFor(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to build session report")
		return
	}
	writeJSON(w, http.StatusOK, toSessionReportDTO(report))
}

// =============================================================================
// CONTRIBUTION HANDLERS
// =============================================================================

// ListContributions returns contributions, filtered by ?member_id= and/or
// ?session_id=.
func (h *Handler) ListContributions(w http.ResponseWriter, r *http.Request) {
	var filter tontine.ContributionFilter
	if q := r.URL.Query().Get("member_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid member_id", err)
			return
		}
		filter.MemberID = &id
	}
	if q := r.URL.Query().Get("session_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session_id", err)
			return
		}
		filter.SessionID = &id
	}

	contributions, err := h.Store.ListContributions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contributions", err)
		return
	}

	dtos := make([]ContributionDTO, len(contributions))
	for i, c := range contributions {
		dtos[i] = toContributionDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// BulkContributions inserts several contributions atomically.
func (h *Handler) BulkContributions(w http.ResponseWriter, r *http.Request) {
	var req BulkContributionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Contributions) == 0 {
		writeError(w, http.StatusBadRequest, "contributions must not be empty", nil)
		return
	}

	rows := make([]tontine.Contribution, len(req.Contributions))
	for i, in := range req.Contributions {
		rows[i] = tontine.Contribution{
			MemberID:  in.MemberID,
			SessionID: in.SessionID,
			Amount:    in.Amount,
			PaidOn:    in.PaidOn,
		}
	}

	created, err := h.sessions.BulkContributions(r.Context(), rows)
	if err != nil {
		writeDomainError(w, err, "Failed to create contributions")
		return
	}

	dtos := make([]ContributionDTO, len(created))
	for i, c := range created {
		dtos[i] = toContributionDTO(c)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// =============================================================================
// PENALTY HANDLERS
// =============================================================================

// ListPenalties returns penalties, filtered by ?member_id=, ?session_id=,
// ?tontine_id=, ?status=.
func (h *Handler) ListPenalties(w http.ResponseWriter, r *http.Request) {
	var filter tontine.PenaltyFilter
	if q := r.URL.Query().Get("member_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid member_id", err)
			return
		}
		filter.MemberID = &id
	}
	if q := r.URL.Query().Get("session_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session_id", err)
			return
		}
		filter.SessionID = &id
	}
	if q := r.URL.Query().Get("tontine_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tontine_id", err)
			return
		}
		filter.TontineID = &id
	}
	if q := r.URL.Query().Get("status"); q != "" {
		status := tontine.PenaltyStatus(q)
		filter.Status = &status
	}

	penalties, err := h.Store.ListPenalties(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list penalties", err)
		return
	}
	writeJSON(w, http.StatusOK, toPenaltyDTOs(penalties))
}

// CreatePenalty issues a manual penalty.
func (h *Handler) CreatePenalty(w http.ResponseWriter, r *http.Request) {
	var req CreatePenaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be > 0", nil)
		return
	}
	kind := tontine.PenaltyKind(req.Kind)
	if kind == "" {
		kind = tontine.PenaltyOther
	}

	p := tontine.Penalty{
		MemberID:  req.MemberID,
		SessionID: req.SessionID,
		TontineID: req.TontineID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Date:      req.Date,
		Status:    tontine.PenaltyUnpaid,
		Kind:      kind,
	}
	err := h.Store.WithTx(r.Context(), func(s tontine.Store) error {
		if _, err := s.GetMember(r.Context(), req.MemberID); err != nil {
			return err
		}
		return s.CreatePenalty(r.Context(), &p)
	})
	if err != nil {
		writeDomainError(w, err, "Failed to create penalty")
		return
	}
	writeJSON(w, http.StatusCreated, toPenaltyDTO(p))
}

// UpdatePenalty settles or re-prices a penalty.
func (h *Handler) UpdatePenalty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdatePenaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be > 0", nil)
		return
	}

	upd := tontine.PenaltyUpdate{Amount: req.Amount}
	if req.Status != nil {
		status := tontine.PenaltyStatus(*req.Status)
		switch status {
		case tontine.PenaltyUnpaid, tontine.PenaltyPaid, tontine.PenaltyCancelled:
		default:
			writeError(w, http.StatusBadRequest, "status must be unpaid, paid, or cancelled", nil)
			return
		}
		upd.Status = &status
	}

	p, err := h.Store.UpdatePenalty(r.Context(), id, upd)
	if err != nil {
		writeDomainError(w, err, "Failed to update penalty")
		return
	}
	writeJSON(w, http.StatusOK, toPenaltyDTO(p))
}

// DeletePenalty removes a penalty.
func (h *Handler) DeletePenalty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeletePenalty(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete penalty")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CREDIT HANDLERS
// =============================================================================

// ListCredits returns credits, filtered by ?member_id= and/or ?status=.
// Overdue reclassification runs first so listings never show a stale
// Active status past its due date.
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	if _, err := h.credits.ReclassifyOverdue(r.Context(), tontine.Today()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reclassify credits", err)
		return
	}

	var filter tontine.CreditFilter
	if q := r.URL.Query().Get("member_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid member_id", err)
			return
		}
		filter.MemberID = &id
	}
	if q := r.URL.Query().Get("status"); q != "" {
		filter.Statuses = []tontine.CreditStatus{tontine.CreditStatus(q)}
	}

	credits, err := h.Store.ListCredits(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list credits", err)
		return
	}

	dtos := make([]CreditDTO, len(credits))
	for i, c := range credits {
		dtos[i] = toCreditDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCredit returns a single credit.
func (h *Handler) GetCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.Store.GetCredit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get credit")
		return
	}
	writeJSON(w, http.StatusOK, toCreditDTO(c))
}

// CreateCredit opens a credit for a member.
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req CreateCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	credit, err := h.credits.RequestCredit(r.Context(), tontine.CreditRequest{
		MemberID:    req.MemberID,
		Principal:   req.Principal,
		Rate:        req.Rate,
		Purpose:     req.Purpose,
		RequestedOn: req.RequestedOn,
		DueOn:       req.DueOn,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to create credit")
		return
	}
	writeJSON(w, http.StatusCreated, toCreditDTO(credit))
}

// RepayCredit applies a repayment.
func (h *Handler) RepayCredit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req RepayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	credit, err := h.credits.Repay(r.Context(), id, req.AmountPaid)
	if err != nil {
		writeDomainError(w, err, "Failed to repay credit")
		return
	}
	writeJSON(w, http.StatusOK, toCreditDTO(credit))
}

// ReclassifyCredits sweeps Active credits past due into Overdue.
// Optional ?as_of=2006-01-02 overrides today.
func (h *Handler) ReclassifyCredits(w http.ResponseWriter, r *http.Request) {
	asOf := tontine.Today()
	if q := r.URL.Query().Get("as_of"); q != "" {
		parsed, err := tontine.ParseDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	count, err := h.credits.ReclassifyOverdue(r.Context(), asOf)
	if err != nil {
		writeDomainError(w, err, "Failed to reclassify credits")
		return
	}
	writeJSON(w, http.StatusOK, ReclassifyResultDTO{Reclassified: count, AsOf: asOf})
}

// =============================================================================
// TOUR HANDLERS
// =============================================================================

// ListTours returns tours, filtered by ?tontine_id=, ?member_id=,
// ?session_id=.
func (h *Handler) ListTours(w http.ResponseWriter, r *http.Request) {
	var filter tontine.TourFilter
	if q := r.URL.Query().Get("tontine_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tontine_id", err)
			return
		}
		filter.TontineID = &id
	}
	if q := r.URL.Query().Get("member_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid member_id", err)
			return
		}
		filter.MemberID = &id
	}
	if q := r.URL.Query().Get("session_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid session_id", err)
			return
		}
		filter.SessionID = &id
	}

	tours, err := h.Store.ListTours(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tours", err)
		return
	}

	dtos := make([]TourDTO, len(tours))
	for i, t := range tours {
		dtos[i] = toTourDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTour returns a single tour.
func (h *Handler) GetTour(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.Store.GetTour(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get tour")
		return
	}
	writeJSON(w, http.StatusOK, toTourDTO(t))
}

// CreateTour awards a payout.
func (h *Handler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var req CreateTourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tour, err := h.rotation.CreateTour(r.Context(), tontine.TourRequest{
		TontineID: req.TontineID,
		MemberID:  req.MemberID,
		Number:    req.Number,
		Date:      req.Date,
		Amount:    req.Amount,
		SessionID: req.SessionID,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to create tour")
		return
	}
	writeJSON(w, http.StatusCreated, toTourDTO(tour))
}

// DeleteTour removes a tour.
func (h *Handler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeleteTour(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to delete tour")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns projects, filtered by ?tontine_id= and/or ?status=.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	var filter tontine.ProjectFilter
	if q := r.URL.Query().Get("tontine_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tontine_id", err)
			return
		}
		filter.TontineID = &id
	}
	if q := r.URL.Query().Get("status"); q != "" {
		status := tontine.ProjectStatus(q)
		filter.Status = &status
	}

	projects, err := h.Store.ListProjects(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProject returns a single project.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.Store.GetProject(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to get project")
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(p))
}

// CreateProject registers a project.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	project, err := h.projects.CreateProject(r.Context(), tontine.ProjectRequest{
		TontineID:     req.TontineID,
		Name:          req.Name,
		Description:   req.Description,
		Budget:        req.Budget,
		Allocated:     req.Allocated,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		ResponsibleID: req.ResponsibleID,
		Participants:  req.Participants,
	})
	if err != nil {
		writeDomainError(w, err, "Failed to create project")
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

// AllocateFunds increases a project's allocation.
func (h *Handler) AllocateFunds(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	project, err := h.projects.AllocateFunds(r.Context(), id, req.Amount)
	if err != nil {
		writeDomainError(w, err, "Failed to allocate funds")
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(project))
}

// CompleteProject moves a project to completed.
func (h *Handler) CompleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	project, err := h.projects.CompleteProject(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "Failed to complete project")
		return
	}
	writeJSON(w, http.StatusOK, toProjectDTO(project))
}

// AddProjectParticipant enrolls a member in a project.
func (h *Handler) AddProjectParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.projects.AddParticipant(r.Context(), id, req.MemberID); err != nil {
		writeDomainError(w, err, "Failed to add participant")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ListProjectParticipants returns a project's participant member IDs.
func (h *Handler) ListProjectParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := h.Store.GetProject(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to list participants")
		return
	}
	ids, err := h.Store.ListProjectParticipants(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list participants", err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, ids)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetDashboard returns the global financial snapshot.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(stats))
}

// GetSynthesis returns the general-assembly synthesis. Optional
// ?tontine_id= scopes projects and trend; ?as_of= overrides today.
func (h *Handler) GetSynthesis(w http.ResponseWriter, r *http.Request) {
	var tontineID *int64
	if q := r.URL.Query().Get("tontine_id"); q != "" {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tontine_id", err)
			return
		}
		tontineID = &id
	}
	asOf := tontine.Today()
	if q := r.URL.Query().Get("as_of"); q != "" {
		parsed, err := tontine.ParseDate(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	synthesis, err := h.reports.AssemblySynthesisFor(r.Context(), tontineID, asOf)
	if err != nil {
		writeDomainError(w, err, "Failed to build synthesis")
		return
	}
	writeJSON(w, http.StatusOK, toSynthesisDTO(synthesis))
}

// =============================================================================
// HELPERS
// =============================================================================

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine failures to HTTP status by kind.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case tontine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case tontine.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case tontine.IsInvalidArgument(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, fallback, err)
	}
}
