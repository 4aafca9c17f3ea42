/*
Package tontine implements the financial state-and-rules engine for a
rotating-savings association.

PURPOSE:
  Members pool periodic contributions, receive payouts ("tours") in
  rotation, incur penalties for absence, request interest-bearing credits,
  and fund member-proposed projects from the common pool. This package
  holds the entity model and the engines that enforce every business rule:
  enrollment, session lifecycle, credit lifecycle, payout rotation,
  project funding, and the derived cash position ("caisse").

KEY CONCEPTS IN THIS FILE (types.go):
  - Member/Tontine/Membership: who saves, in which circle, with how many parts
  - Session/Contribution/Penalty: one meeting and what was recorded at it
  - Credit: an interest-bearing loan from the pool to a member
  - Tour: a payout event distributing pooled funds to one member
  - Project: a pool-financed initiative with a budget and allocations

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never float64
  2. Derived state: the cash position is recomputed from entities on demand;
     there is no running counter that can drift
  3. Typed failures: every rule violation is NotFound, Conflict, or
     InvalidArgument (see errors.go)
  4. Transactional writes: every multi-write operation runs inside one
     store transaction (see store.go)

SEE ALSO:
  - store.go: persistence contract the engines run against
  - session.go, credit.go, rotation.go, project.go: lifecycle engines
  - aggregate.go: cash position and report figures
*/
package tontine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MEMBER
// =============================================================================

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// Member is a person enrolled in the association. A member may belong to
// several tontines at once, each with its own membership parts.
type Member struct {
	ID         int64
	Name       string
	FirstName  string
	Phone      string
	Email      string
	Address    string
	Commune    string
	Status     MemberStatus
	EnrolledOn Date
}

// DisplayName is the "FirstName Name" form used by reports.
func (m Member) DisplayName() string {
	if m.FirstName == "" {
		return m.Name
	}
	return m.FirstName + " " + m.Name
}

// =============================================================================
// TONTINE
// =============================================================================

// TontineKind distinguishes the two contribution regimes.
//
// Presence: fixed-amount, attendance-mandatory. Every member holds exactly
// one part and absences are penalized.
//
// Optional: share-based. Members hold one or more parts and contribute in
// proportion; absences carry no penalty.
type TontineKind string

const (
	KindPresence TontineKind = "presence"
	KindOptional TontineKind = "optional"
)

type TontineStatus string

const (
	TontineActive TontineStatus = "active"
	TontineClosed TontineStatus = "closed"
)

// Tontine is one savings circle.
type Tontine struct {
	ID                 int64
	Kind               TontineKind
	ContributionAmount decimal.Decimal // per part, per session
	Period             string          // e.g. "monthly", "weekly"
	Description        string
	StartDate          Date
	EndDate            *Date
	Status             TontineStatus
}

// Membership links a member to a tontine. The (MemberID, TontineID) pair is
// unique. Parts is the share multiplier: forced to 1 for presence tontines,
// >= 1 for optional ones (enforced by EnrollmentEngine and the store).
type Membership struct {
	MemberID  int64
	TontineID int64
	Parts     int
}

// ExpectedContribution is what this membership owes per session:
// parts x the tontine's per-part contribution amount.
func (ms Membership) ExpectedContribution(t Tontine) decimal.Decimal {
	return t.ContributionAmount.Mul(decimal.NewFromInt(int64(ms.Parts)))
}

// =============================================================================
// SESSION
// =============================================================================

// SessionStatus transitions: Scheduled -> Held -> Closed, with Cancelled
// reachable from Scheduled and Held. RecordMeeting is the only operation
// that issues contributions and penalties, and it only accepts Scheduled
// sessions, so penalties can never be issued twice for one meeting.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionHeld      SessionStatus = "held"
	SessionClosed    SessionStatus = "closed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session is one meeting instance of a tontine.
type Session struct {
	ID        int64
	TontineID int64
	Date      Date
	Location  string
	Status    SessionStatus
	Notes     string
}

// Contribution is a payment by a member at a session. Amount is always > 0.
type Contribution struct {
	ID        int64
	MemberID  int64
	SessionID int64
	Amount    decimal.Decimal
	PaidOn    Date
}

// =============================================================================
// PENALTY
// =============================================================================

type PenaltyStatus string

const (
	PenaltyUnpaid    PenaltyStatus = "unpaid"
	PenaltyPaid      PenaltyStatus = "paid"
	PenaltyCancelled PenaltyStatus = "cancelled"
)

type PenaltyKind string

const (
	PenaltyAbsence    PenaltyKind = "absence"
	PenaltyLate       PenaltyKind = "late"
	PenaltyMisconduct PenaltyKind = "misconduct"
	PenaltyOther      PenaltyKind = "other"
)

// Penalty is a charge against a member, optionally tied to the session
// and/or tontine it arose from. Only Paid penalties count toward the cash
// position.
type Penalty struct {
	ID        int64
	MemberID  int64
	SessionID *int64
	TontineID *int64
	Amount    decimal.Decimal
	Reason    string
	Date      Date
	Status    PenaltyStatus
	Kind      PenaltyKind
}

// =============================================================================
// CREDIT
// =============================================================================

// CreditStatus transitions: Active -> Overdue -> Repaid, and Active ->
// Repaid directly. Overdue never auto-reverts to Active; only full
// repayment closes a credit.
type CreditStatus string

const (
	CreditActive  CreditStatus = "active"
	CreditOverdue CreditStatus = "overdue"
	CreditRepaid  CreditStatus = "repaid"
)

// Credit is a loan from the pool to a member. Balance starts at
// Principal x (1 + Rate/100) and only ever decreases; it reaches exactly 0
// when the credit is repaid.
type Credit struct {
	ID          int64
	MemberID    int64
	Principal   decimal.Decimal
	Rate        decimal.Decimal // percent
	Balance     decimal.Decimal
	Purpose     string
	RequestedOn Date
	DueOn       Date
	Status      CreditStatus
}

// Outstanding reports whether the credit still ties up pool funds.
func (c Credit) Outstanding() bool {
	return c.Status == CreditActive || c.Status == CreditOverdue
}

// =============================================================================
// TOUR
// =============================================================================

// Tour is a payout event: one member receives a distribution from one
// tontine. Number is unique and increasing per tontine (1, 2, 3, ...), and
// a member receives at most one tour per tontine cycle. Both constraints
// are enforced by the store.
type Tour struct {
	ID        int64
	TontineID int64
	MemberID  int64
	Number    int
	Date      Date
	Amount    decimal.Decimal
	SessionID *int64
}

// =============================================================================
// PROJECT
// =============================================================================

type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
)

// Project is a pool-financed initiative (FIAC). Allocated grows up to
// Budget while the project is in progress; in-progress allocations reduce
// the cash position.
type Project struct {
	ID            int64
	TontineID     int64
	Name          string
	Description   string
	Budget        decimal.Decimal
	Allocated     decimal.Decimal
	StartDate     Date
	EndDate       *Date
	Status        ProjectStatus
	ResponsibleID *int64
}

// Remaining is the unallocated part of the budget.
func (p Project) Remaining() decimal.Decimal {
	return p.Budget.Sub(p.Allocated)
}

// =============================================================================
// HELPERS
// =============================================================================

// MustDecimal parses s as a decimal, returning zero on malformed input.
// Intended for literals in tests and defaults.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
