/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates members, tontines,
	sessions, and movements that demonstrate specific features.

AVAILABLE SCENARIOS:

	village-presence: Presence tontine with a recorded meeting and absences
	credit-cycle:     Contributions funding a credit, partially repaid
	project-funding:  Community project with allocated funds

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create members and tontines
 3. Enroll members
 4. Run sessions, credits, tours, or projects through the engines

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "village-presence"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: shared response helpers
  - server.go: /api/scenarios routes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/tontine-engine/tontine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "village-presence",
		Name:        "Village Presence Tontine",
		Description: "Presence tontine with a recorded meeting, one absence penalty, and a first tour",
		Category:    "sessions",
	},
	{
		ID:          "credit-cycle",
		Name:        "Credit Cycle",
		Description: "Contributions funding a member credit with interest, partially repaid",
		Category:    "credits",
	},
	{
		ID:          "project-funding",
		Name:        "Project Funding",
		Description: "Community project with participants and a partial fund allocation",
		Category:    "projects",
	},
}

// resetter is implemented by stores that can wipe all data.
type resetter interface {
	Reset(ctx context.Context) error
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario wipes the database and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rs, ok := h.Store.(resetter)
	if !ok {
		writeError(w, http.StatusConflict, "Store does not support scenario loading", nil)
		return
	}
	if err := rs.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "village-presence":
		err = h.loadVillagePresenceScenario(r.Context())
	case "credit-cycle":
		err = h.loadCreditCycleScenario(r.Context())
	case "project-funding":
		err = h.loadProjectFundingScenario(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) seedMembers(ctx context.Context, names []string) ([]tontine.Member, error) {
	members := make([]tontine.Member, 0, len(names))
	for _, name := range names {
		m := tontine.Member{
			Name:       name,
			Status:     tontine.MemberActive,
			Commune:    "Commune IV",
			EnrolledOn: tontine.NewDate(2025, time.January, 5),
		}
		if err := h.Store.CreateMember(ctx, &m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (h *Handler) seedTontine(ctx context.Context, kind tontine.TontineKind, amount string) (tontine.Tontine, error) {
	t := tontine.Tontine{
		Kind:               kind,
		ContributionAmount: tontine.MustDecimal(amount),
		Period:             "monthly",
		Description:        "Demo tontine",
		StartDate:          tontine.NewDate(2025, time.January, 5),
		Status:             tontine.TontineActive,
	}
	err := h.Store.CreateTontine(ctx, &t)
	return t, err
}

func (h *Handler) loadVillagePresenceScenario(ctx context.Context) error {
	members, err := h.seedMembers(ctx, []string{"Awa Diallo", "Moussa Traoré", "Fatou Keïta"})
	if err != nil {
		return err
	}
	t, err := h.seedTontine(ctx, tontine.KindPresence, "10000")
	if err != nil {
		return err
	}
	for _, m := range members {
		if _, err := h.enrollment.Enroll(ctx, m.ID, t.ID, 1); err != nil {
			return err
		}
	}

	sess := tontine.Session{
		TontineID: t.ID,
		Date:      tontine.NewDate(2025, time.February, 2),
		Location:  "Place du village",
		Status:    tontine.SessionScheduled,
	}
	if err := h.Store.CreateSession(ctx, &sess); err != nil {
		return err
	}

	records := []tontine.MeetingRecord{
		{MemberID: members[0].ID, Present: true, AmountPaid: tontine.MustDecimal("10000")},
		{MemberID: members[1].ID, Present: true, AmountPaid: tontine.MustDecimal("10000")},
		{MemberID: members[2].ID, Present: false},
	}
	if _, err := h.sessions.RecordMeeting(ctx, sess.ID, records, decimal.Zero); err != nil {
		return err
	}

	if _, err := h.rotation.CreateTour(ctx, tontine.TourRequest{
		TontineID: t.ID,
		MemberID:  members[0].ID,
		Date:      sess.Date,
		Amount:    tontine.MustDecimal("20000"),
	}); err != nil {
		return err
	}

	_, err = h.sessions.CloseSession(ctx, sess.ID)
	return err
}

func (h *Handler) loadCreditCycleScenario(ctx context.Context) error {
	members, err := h.seedMembers(ctx, []string{"Awa Diallo", "Moussa Traoré"})
	if err != nil {
		return err
	}
	t, err := h.seedTontine(ctx, tontine.KindOptional, "15000")
	if err != nil {
		return err
	}
	for _, m := range members {
		if _, err := h.enrollment.Enroll(ctx, m.ID, t.ID, 1); err != nil {
			return err
		}
	}

	sess := tontine.Session{
		TontineID: t.ID,
		Date:      tontine.NewDate(2025, time.March, 2),
		Status:    tontine.SessionScheduled,
	}
	if err := h.Store.CreateSession(ctx, &sess); err != nil {
		return err
	}
	if _, err := h.sessions.BulkContributions(ctx, []tontine.Contribution{
		{MemberID: members[0].ID, SessionID: sess.ID, Amount: tontine.MustDecimal("15000")},
		{MemberID: members[1].ID, SessionID: sess.ID, Amount: tontine.MustDecimal("15000")},
	}); err != nil {
		return err
	}

	credit, err := h.credits.RequestCredit(ctx, tontine.CreditRequest{
		MemberID:    members[1].ID,
		Principal:   tontine.MustDecimal("20000"),
		Rate:        tontine.MustDecimal("10"),
		Purpose:     "Petit commerce",
		RequestedOn: tontine.NewDate(2025, time.March, 2),
		// Far enough out that the overdue sweep leaves the demo credit active
		DueOn:       tontine.Today().AddYears(1),
	})
	if err != nil {
		return err
	}

	_, err = h.credits.Repay(ctx, credit.ID, tontine.MustDecimal("10000"))
	return err
}

func (h *Handler) loadProjectFundingScenario(ctx context.Context) error {
	members, err := h.seedMembers(ctx, []string{"Awa Diallo", "Moussa Traoré", "Fatou Keïta"})
	if err != nil {
		return err
	}
	t, err := h.seedTontine(ctx, tontine.KindOptional, "25000")
	if err != nil {
		return err
	}
	for _, m := range members {
		if _, err := h.enrollment.Enroll(ctx, m.ID, t.ID, 2); err != nil {
			return err
		}
	}

	sess := tontine.Session{
		TontineID: t.ID,
		Date:      tontine.NewDate(2025, time.April, 6),
		Status:    tontine.SessionScheduled,
	}
	if err := h.Store.CreateSession(ctx, &sess); err != nil {
		return err
	}
	contribs := make([]tontine.Contribution, 0, len(members))
	for _, m := range members {
		contribs = append(contribs, tontine.Contribution{
			MemberID:  m.ID,
			SessionID: sess.ID,
			Amount:    tontine.MustDecimal("50000"),
		})
	}
	if _, err := h.sessions.BulkContributions(ctx, contribs); err != nil {
		return err
	}

	project, err := h.projects.CreateProject(ctx, tontine.ProjectRequest{
		TontineID:     t.ID,
		Name:          "Moulin communautaire",
		Description:   "Achat et installation d'un moulin",
		Budget:        tontine.MustDecimal("120000"),
		Allocated:     decimal.Zero,
		StartDate:     tontine.NewDate(2025, time.April, 6),
		ResponsibleID: &members[0].ID,
		Participants:  []int64{members[0].ID, members[1].ID, members[2].ID},
	})
	if err != nil {
		return err
	}

	_, err = h.projects.AllocateFunds(ctx, project.ID, tontine.MustDecimal("80000"))
	return err
}
