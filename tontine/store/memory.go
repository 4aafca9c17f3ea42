/*
Package store provides an in-memory implementation of the tontine Store
interfaces for tests and development.

The memory store mirrors the production SQLite store's contract: IDs are
assigned on create, uniqueness violations surface as ErrConflict, and
WithTx gives all-or-nothing semantics by snapshotting state and restoring
it when the transaction function fails. Transactions are serialized, which
is all the isolation the engine tests need.
*/
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/tontine-engine/tontine"
)

type membershipKey struct {
	MemberID  int64
	TontineID int64
}

type participantKey struct {
	ProjectID int64
	MemberID  int64
}

// Memory implements tontine.TxStore in memory.
type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	nextID int64

	members       map[int64]tontine.Member
	tontines      map[int64]tontine.Tontine
	memberships   map[membershipKey]tontine.Membership
	sessions      map[int64]tontine.Session
	contributions map[int64]tontine.Contribution
	penalties     map[int64]tontine.Penalty
	credits       map[int64]tontine.Credit
	tours         map[int64]tontine.Tour
	projects      map[int64]tontine.Project
	participants  map[participantKey]bool
}

var _ tontine.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		members:       make(map[int64]tontine.Member),
		tontines:      make(map[int64]tontine.Tontine),
		memberships:   make(map[membershipKey]tontine.Membership),
		sessions:      make(map[int64]tontine.Session),
		contributions: make(map[int64]tontine.Contribution),
		penalties:     make(map[int64]tontine.Penalty),
		credits:       make(map[int64]tontine.Credit),
		tours:         make(map[int64]tontine.Tour),
		projects:      make(map[int64]tontine.Project),
		participants:  make(map[participantKey]bool),
	}
}

func (m *Memory) allocID() int64 {
	m.nextID++
	return m.nextID
}

// =============================================================================
// TRANSACTIONS - snapshot and restore
// =============================================================================

// WithTx runs fn and rolls every write back if it fails. Transactions are
// serialized by txMu.
func (m *Memory) WithTx(ctx context.Context, fn func(tontine.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	nextID        int64
	members       map[int64]tontine.Member
	tontines      map[int64]tontine.Tontine
	memberships   map[membershipKey]tontine.Membership
	sessions      map[int64]tontine.Session
	contributions map[int64]tontine.Contribution
	penalties     map[int64]tontine.Penalty
	credits       map[int64]tontine.Credit
	tours         map[int64]tontine.Tour
	projects      map[int64]tontine.Project
	participants  map[participantKey]bool
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memorySnapshot{
		nextID:        m.nextID,
		members:       copyMap(m.members),
		tontines:      copyMap(m.tontines),
		memberships:   copyMap(m.memberships),
		sessions:      copyMap(m.sessions),
		contributions: copyMap(m.contributions),
		penalties:     copyMap(m.penalties),
		credits:       copyMap(m.credits),
		tours:         copyMap(m.tours),
		projects:      copyMap(m.projects),
		participants:  copyMap(m.participants),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.members = s.members
	m.tontines = s.tontines
	m.memberships = s.memberships
	m.sessions = s.sessions
	m.contributions = s.contributions
	m.penalties = s.penalties
	m.credits = s.credits
	m.tours = s.tours
	m.projects = s.projects
	m.participants = s.participants
}

// =============================================================================
// MEMBERS
// =============================================================================

func (m *Memory) CreateMember(_ context.Context, member *tontine.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member.Email != "" {
		for _, existing := range m.members {
			if existing.Email == member.Email {
				return &tontine.ConflictError{Reason: "member email already exists"}
			}
		}
	}
	member.ID = m.allocID()
	m.members[member.ID] = *member
	return nil
}

func (m *Memory) GetMember(_ context.Context, id int64) (tontine.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	member, ok := m.members[id]
	if !ok {
		return tontine.Member{}, &tontine.NotFoundError{Entity: "member", ID: id}
	}
	return member, nil
}

func (m *Memory) ListMembers(_ context.Context) ([]tontine.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]tontine.Member, 0, len(m.members))
	for _, member := range m.members {
		result = append(result, member)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpdateMember(_ context.Context, id int64, upd tontine.MemberUpdate) (tontine.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[id]
	if !ok {
		return tontine.Member{}, &tontine.NotFoundError{Entity: "member", ID: id}
	}
	if upd.Name != nil {
		member.Name = *upd.Name
	}
	if upd.FirstName != nil {
		member.FirstName = *upd.FirstName
	}
	if upd.Phone != nil {
		member.Phone = *upd.Phone
	}
	if upd.Email != nil {
		member.Email = *upd.Email
	}
	if upd.Address != nil {
		member.Address = *upd.Address
	}
	if upd.Commune != nil {
		member.Commune = *upd.Commune
	}
	if upd.Status != nil {
		member.Status = *upd.Status
	}
	m.members[id] = member
	return member, nil
}

func (m *Memory) DeleteMember(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[id]; !ok {
		return &tontine.NotFoundError{Entity: "member", ID: id}
	}
	delete(m.members, id)
	return nil
}

// =============================================================================
// TONTINES
// =============================================================================

func (m *Memory) CreateTontine(_ context.Context, t *tontine.Tontine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.allocID()
	m.tontines[t.ID] = *t
	return nil
}

func (m *Memory) GetTontine(_ context.Context, id int64) (tontine.Tontine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tontines[id]
	if !ok {
		return tontine.Tontine{}, &tontine.NotFoundError{Entity: "tontine", ID: id}
	}
	return t, nil
}

func (m *Memory) ListTontines(_ context.Context) ([]tontine.Tontine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]tontine.Tontine, 0, len(m.tontines))
	for _, t := range m.tontines {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpdateTontine(_ context.Context, id int64, upd tontine.TontineUpdate) (tontine.Tontine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tontines[id]
	if !ok {
		return tontine.Tontine{}, &tontine.NotFoundError{Entity: "tontine", ID: id}
	}
	if upd.ContributionAmount != nil {
		t.ContributionAmount = *upd.ContributionAmount
	}
	if upd.Period != nil {
		t.Period = *upd.Period
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.EndDate != nil {
		end := *upd.EndDate
		t.EndDate = &end
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	m.tontines[id] = t
	return t, nil
}

func (m *Memory) DeleteTontine(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tontines[id]; !ok {
		return &tontine.NotFoundError{Entity: "tontine", ID: id}
	}
	delete(m.tontines, id)
	return nil
}

// =============================================================================
// MEMBERSHIPS
// =============================================================================

func (m *Memory) CreateMembership(_ context.Context, ms tontine.Membership) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := membershipKey{MemberID: ms.MemberID, TontineID: ms.TontineID}
	if _, exists := m.memberships[k]; exists {
		return &tontine.ConflictError{Reason: "membership already exists"}
	}
	m.memberships[k] = ms
	return nil
}

func (m *Memory) GetMembership(_ context.Context, memberID, tontineID int64) (tontine.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ms, ok := m.memberships[membershipKey{MemberID: memberID, TontineID: tontineID}]
	if !ok {
		return tontine.Membership{}, &tontine.NotFoundError{Entity: "membership", ID: memberID}
	}
	return ms, nil
}

func (m *Memory) ListMembershipsByTontine(_ context.Context, tontineID int64) ([]tontine.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Membership
	for _, ms := range m.memberships {
		if ms.TontineID == tontineID {
			result = append(result, ms)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].MemberID < result[j].MemberID })
	return result, nil
}

func (m *Memory) ListMembershipsByMember(_ context.Context, memberID int64) ([]tontine.Membership, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Membership
	for _, ms := range m.memberships {
		if ms.MemberID == memberID {
			result = append(result, ms)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TontineID < result[j].TontineID })
	return result, nil
}

// =============================================================================
// SESSIONS
// =============================================================================

func (m *Memory) CreateSession(_ context.Context, s *tontine.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tontines[s.TontineID]; !ok {
		return &tontine.NotFoundError{Entity: "tontine", ID: s.TontineID}
	}
	if s.Status == "" {
		s.Status = tontine.SessionScheduled
	}
	s.ID = m.allocID()
	m.sessions[s.ID] = *s
	return nil
}

func (m *Memory) GetSession(_ context.Context, id int64) (tontine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return tontine.Session{}, &tontine.NotFoundError{Entity: "session", ID: id}
	}
	return s, nil
}

func (m *Memory) ListSessions(_ context.Context, f tontine.SessionFilter) ([]tontine.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Session
	for _, s := range m.sessions {
		if f.TontineID != nil && s.TontineID != *f.TontineID {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpdateSession(_ context.Context, id int64, upd tontine.SessionUpdate) (tontine.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return tontine.Session{}, &tontine.NotFoundError{Entity: "session", ID: id}
	}
	if upd.Date != nil {
		s.Date = *upd.Date
	}
	if upd.Location != nil {
		s.Location = *upd.Location
	}
	if upd.Status != nil {
		s.Status = *upd.Status
	}
	if upd.Notes != nil {
		s.Notes = *upd.Notes
	}
	m.sessions[id] = s
	return s, nil
}

func (m *Memory) DeleteSession(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return &tontine.NotFoundError{Entity: "session", ID: id}
	}
	delete(m.sessions, id)
	return nil
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

func (m *Memory) CreateContribution(_ context.Context, c *tontine.Contribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.allocID()
	m.contributions[c.ID] = *c
	return nil
}

func (m *Memory) ListContributions(_ context.Context, f tontine.ContributionFilter) ([]tontine.Contribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Contribution
	for _, c := range m.contributions {
		if f.MemberID != nil && c.MemberID != *f.MemberID {
			continue
		}
		if f.SessionID != nil && c.SessionID != *f.SessionID {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// PENALTIES
// =============================================================================

func (m *Memory) CreatePenalty(_ context.Context, p *tontine.Penalty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == "" {
		p.Status = tontine.PenaltyUnpaid
	}
	p.ID = m.allocID()
	m.penalties[p.ID] = *p
	return nil
}

func (m *Memory) GetPenalty(_ context.Context, id int64) (tontine.Penalty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.penalties[id]
	if !ok {
		return tontine.Penalty{}, &tontine.NotFoundError{Entity: "penalty", ID: id}
	}
	return p, nil
}

func (m *Memory) ListPenalties(_ context.Context, f tontine.PenaltyFilter) ([]tontine.Penalty, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Penalty
	for _, p := range m.penalties {
		if f.MemberID != nil && p.MemberID != *f.MemberID {
			continue
		}
		if f.SessionID != nil && (p.SessionID == nil || *p.SessionID != *f.SessionID) {
			continue
		}
		if f.TontineID != nil && (p.TontineID == nil || *p.TontineID != *f.TontineID) {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpdatePenalty(_ context.Context, id int64, upd tontine.PenaltyUpdate) (tontine.Penalty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.penalties[id]
	if !ok {
		return tontine.Penalty{}, &tontine.NotFoundError{Entity: "penalty", ID: id}
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.Amount != nil {
		p.Amount = *upd.Amount
	}
	m.penalties[id] = p
	return p, nil
}

func (m *Memory) DeletePenalty(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.penalties[id]; !ok {
		return &tontine.NotFoundError{Entity: "penalty", ID: id}
	}
	delete(m.penalties, id)
	return nil
}

// =============================================================================
// CREDITS
// =============================================================================

func (m *Memory) CreateCredit(_ context.Context, c *tontine.Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.allocID()
	m.credits[c.ID] = *c
	return nil
}

func (m *Memory) GetCredit(_ context.Context, id int64) (tontine.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credits[id]
	if !ok {
		return tontine.Credit{}, &tontine.NotFoundError{Entity: "credit", ID: id}
	}
	return c, nil
}

func (m *Memory) ListCredits(_ context.Context, f tontine.CreditFilter) ([]tontine.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Credit
	for _, c := range m.credits {
		if f.MemberID != nil && c.MemberID != *f.MemberID {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, c.Status) {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func containsStatus(statuses []tontine.CreditStatus, s tontine.CreditStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

func (m *Memory) UpdateCredit(_ context.Context, id int64, upd tontine.CreditUpdate) (tontine.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credits[id]
	if !ok {
		return tontine.Credit{}, &tontine.NotFoundError{Entity: "credit", ID: id}
	}
	if upd.Balance != nil {
		c.Balance = *upd.Balance
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	m.credits[id] = c
	return c, nil
}

// =============================================================================
// TOURS
// =============================================================================

func (m *Memory) CreateTour(_ context.Context, t *tontine.Tour) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.tours {
		if existing.TontineID != t.TontineID {
			continue
		}
		if existing.MemberID == t.MemberID {
			return &tontine.ConflictError{Reason: "member already has a tour in this tontine"}
		}
		if existing.Number == t.Number {
			return &tontine.ConflictError{Reason: "tour number already taken in this tontine"}
		}
	}
	t.ID = m.allocID()
	m.tours[t.ID] = *t
	return nil
}

func (m *Memory) GetTour(_ context.Context, id int64) (tontine.Tour, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tours[id]
	if !ok {
		return tontine.Tour{}, &tontine.NotFoundError{Entity: "tour", ID: id}
	}
	return t, nil
}

func (m *Memory) ListTours(_ context.Context, f tontine.TourFilter) ([]tontine.Tour, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Tour
	for _, t := range m.tours {
		if f.TontineID != nil && t.TontineID != *f.TontineID {
			continue
		}
		if f.MemberID != nil && t.MemberID != *f.MemberID {
			continue
		}
		if f.SessionID != nil && (t.SessionID == nil || *t.SessionID != *f.SessionID) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (m *Memory) DeleteTour(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tours[id]; !ok {
		return &tontine.NotFoundError{Entity: "tour", ID: id}
	}
	delete(m.tours, id)
	return nil
}

// =============================================================================
// PROJECTS
// =============================================================================

func (m *Memory) CreateProject(_ context.Context, p *tontine.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Status == "" {
		p.Status = tontine.ProjectInProgress
	}
	p.ID = m.allocID()
	m.projects[p.ID] = *p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id int64) (tontine.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return tontine.Project{}, &tontine.NotFoundError{Entity: "project", ID: id}
	}
	return p, nil
}

func (m *Memory) ListProjects(_ context.Context, f tontine.ProjectFilter) ([]tontine.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []tontine.Project
	for _, p := range m.projects {
		if f.TontineID != nil && p.TontineID != *f.TontineID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) UpdateProject(_ context.Context, id int64, upd tontine.ProjectUpdate) (tontine.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return tontine.Project{}, &tontine.NotFoundError{Entity: "project", ID: id}
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Budget != nil {
		p.Budget = *upd.Budget
	}
	if upd.Allocated != nil {
		p.Allocated = *upd.Allocated
	}
	if upd.EndDate != nil {
		end := *upd.EndDate
		p.EndDate = &end
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	m.projects[id] = p
	return p, nil
}

func (m *Memory) DeleteProject(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return &tontine.NotFoundError{Entity: "project", ID: id}
	}
	delete(m.projects, id)
	return nil
}

func (m *Memory) AddProjectParticipant(_ context.Context, projectID, memberID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := participantKey{ProjectID: projectID, MemberID: memberID}
	if m.participants[k] {
		return &tontine.ConflictError{Reason: "member already participates in this project"}
	}
	m.participants[k] = true
	return nil
}

func (m *Memory) ListProjectParticipants(_ context.Context, projectID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []int64
	for k := range m.participants {
		if k.ProjectID == projectID {
			result = append(result, k.MemberID)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}
