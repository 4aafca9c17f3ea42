/*
store.go - Persistence contract between the engines and the ledger store

PURPOSE:
  Defines the interface the engines run against. The store is durable and
  transactional; the engines hold no state of their own. Two
  implementations exist:

    tontine/store (memory):  in-memory, for tests and development
    store/sqlite:            production SQLite

UNIQUENESS CONTRACT:
  The store, not the engines, is the last line of defense against races.
  Implementations MUST enforce uniqueness on:
    - membership (member, tontine)
    - tour (tontine, member)   one payout per member per cycle
    - tour (tontine, number)   gapless-by-convention sequence
    - member email
  and surface violations as ErrConflict. Engines pre-check to produce
  precise errors, but a lost race must never silently duplicate.

TRANSACTIONS:
  Every engine operation that performs more than one write executes inside
  WithTx: either all writes land or none do. Partial penalty issuance is
  not a representable state.

UPDATES:
  Partial updates use explicit per-entity update structs with pointer
  fields (nil = leave unchanged). There is no arbitrary field-map patch
  path, so invariants stay enforceable at the type level.
*/
package tontine

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FILTERS AND UPDATE STRUCTS
// =============================================================================

// MemberUpdate lists the mutable member fields. Status covers
// active/inactive toggling; enrollment date is immutable.
type MemberUpdate struct {
	Name      *string
	FirstName *string
	Phone     *string
	Email     *string
	Address   *string
	Commune   *string
	Status    *MemberStatus
}

type TontineUpdate struct {
	ContributionAmount *decimal.Decimal
	Period             *string
	Description        *string
	EndDate            *Date
	Status             *TontineStatus
}

type SessionUpdate struct {
	Date     *Date
	Location *string
	Status   *SessionStatus
	Notes    *string
}

type PenaltyUpdate struct {
	Status *PenaltyStatus
	Amount *decimal.Decimal
}

type CreditUpdate struct {
	Balance *decimal.Decimal
	Status  *CreditStatus
}

type ProjectUpdate struct {
	Name        *string
	Description *string
	Budget      *decimal.Decimal
	Allocated   *decimal.Decimal
	EndDate     *Date
	Status      *ProjectStatus
}

type SessionFilter struct {
	TontineID *int64
}

type ContributionFilter struct {
	MemberID  *int64
	SessionID *int64
}

type PenaltyFilter struct {
	MemberID  *int64
	SessionID *int64
	TontineID *int64
	Status    *PenaltyStatus
}

type CreditFilter struct {
	MemberID *int64
	Statuses []CreditStatus
}

type TourFilter struct {
	TontineID *int64
	MemberID  *int64
	SessionID *int64
}

type ProjectFilter struct {
	TontineID *int64
	Status    *ProjectStatus
}

// =============================================================================
// PER-ENTITY STORES
// =============================================================================

// MemberStore persists members. CreateMember assigns the ID.
type MemberStore interface {
	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id int64) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	UpdateMember(ctx context.Context, id int64, upd MemberUpdate) (Member, error)
	DeleteMember(ctx context.Context, id int64) error
}

type TontineStore interface {
	CreateTontine(ctx context.Context, t *Tontine) error
	GetTontine(ctx context.Context, id int64) (Tontine, error)
	ListTontines(ctx context.Context) ([]Tontine, error)
	UpdateTontine(ctx context.Context, id int64, upd TontineUpdate) (Tontine, error)
	DeleteTontine(ctx context.Context, id int64) error
}

// MembershipStore persists member-tontine associations. CreateMembership
// returns ErrConflict when the pair already exists.
type MembershipStore interface {
	CreateMembership(ctx context.Context, ms Membership) error
	GetMembership(ctx context.Context, memberID, tontineID int64) (Membership, error)
	ListMembershipsByTontine(ctx context.Context, tontineID int64) ([]Membership, error)
	ListMembershipsByMember(ctx context.Context, memberID int64) ([]Membership, error)
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id int64) (Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]Session, error)
	UpdateSession(ctx context.Context, id int64, upd SessionUpdate) (Session, error)
	DeleteSession(ctx context.Context, id int64) error
}

type ContributionStore interface {
	CreateContribution(ctx context.Context, c *Contribution) error
	ListContributions(ctx context.Context, f ContributionFilter) ([]Contribution, error)
}

type PenaltyStore interface {
	CreatePenalty(ctx context.Context, p *Penalty) error
	GetPenalty(ctx context.Context, id int64) (Penalty, error)
	ListPenalties(ctx context.Context, f PenaltyFilter) ([]Penalty, error)
	UpdatePenalty(ctx context.Context, id int64, upd PenaltyUpdate) (Penalty, error)
	DeletePenalty(ctx context.Context, id int64) error
}

type CreditStore interface {
	CreateCredit(ctx context.Context, c *Credit) error
	GetCredit(ctx context.Context, id int64) (Credit, error)
	ListCredits(ctx context.Context, f CreditFilter) ([]Credit, error)
	UpdateCredit(ctx context.Context, id int64, upd CreditUpdate) (Credit, error)
}

// TourStore persists payout events. CreateTour returns ErrConflict when the
// (tontine, member) or (tontine, number) pair already exists.
type TourStore interface {
	CreateTour(ctx context.Context, t *Tour) error
	GetTour(ctx context.Context, id int64) (Tour, error)
	ListTours(ctx context.Context, f TourFilter) ([]Tour, error)
	DeleteTour(ctx context.Context, id int64) error
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id int64) (Project, error)
	ListProjects(ctx context.Context, f ProjectFilter) ([]Project, error)
	UpdateProject(ctx context.Context, id int64, upd ProjectUpdate) (Project, error)
	DeleteProject(ctx context.Context, id int64) error
	AddProjectParticipant(ctx context.Context, projectID, memberID int64) error
	ListProjectParticipants(ctx context.Context, projectID int64) ([]int64, error)
}

// =============================================================================
// STORE - Full persistence surface
// =============================================================================

// Store is the complete persistence surface the engines read and write.
type Store interface {
	MemberStore
	TontineStore
	MembershipStore
	SessionStore
	ContributionStore
	PenaltyStore
	CreditStore
	TourStore
	ProjectStore
}

// TxStore adds atomic multi-write support. fn runs against a store view
// whose writes commit together or not at all; returning an error rolls
// everything back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
