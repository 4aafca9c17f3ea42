/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND DATES:
  Amounts travel as decimal strings ("5000", "2500.50"); shopspring's
  Decimal marshals quoted, so clients never see float rounding. Dates are
  "2006-01-02" strings via tontine.Date.

VALIDATION:
  Validation is done in the engines, not in DTOs. DTOs are pure data
  carriers; handlers only translate.

SEE ALSO:
  - handlers.go: Uses these types
  - tontine/types.go: Domain entities behind the DTOs
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/tontine-engine/tontine"
)

// =============================================================================
// MEMBER
// =============================================================================

// MemberDTO represents a member in API responses.
type MemberDTO struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	FirstName  string       `json:"first_name,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Email      string       `json:"email,omitempty"`
	Address    string       `json:"address,omitempty"`
	Commune    string       `json:"commune,omitempty"`
	Status     string       `json:"status"`
	EnrolledOn tontine.Date `json:"enrolled_on"`
}

// CreateMemberRequest is the request to register a member.
type CreateMemberRequest struct {
	Name       string       `json:"name"`
	FirstName  string       `json:"first_name,omitempty"`
	Phone      string       `json:"phone,omitempty"`
	Email      string       `json:"email,omitempty"`
	Address    string       `json:"address,omitempty"`
	Commune    string       `json:"commune,omitempty"`
	EnrolledOn tontine.Date `json:"enrolled_on"`
}

// UpdateMemberRequest carries a partial member update; absent fields are
// left unchanged.
type UpdateMemberRequest struct {
	Name      *string `json:"name,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	Address   *string `json:"address,omitempty"`
	Commune   *string `json:"commune,omitempty"`
	Status    *string `json:"status,omitempty"`
}

// =============================================================================
// TONTINE
// =============================================================================

// TontineDTO represents a tontine in API responses.
type TontineDTO struct {
	ID                 int64           `json:"id"`
	Kind               string          `json:"kind"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	Period             string          `json:"period,omitempty"`
	Description        string          `json:"description,omitempty"`
	StartDate          tontine.Date    `json:"start_date"`
	EndDate            *tontine.Date   `json:"end_date,omitempty"`
	Status             string          `json:"status"`
}

// CreateTontineRequest is the request to create a tontine.
type CreateTontineRequest struct {
	Kind               string          `json:"kind"`
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	Period             string          `json:"period,omitempty"`
	Description        string          `json:"description,omitempty"`
	StartDate          tontine.Date    `json:"start_date"`
	EndDate            *tontine.Date   `json:"end_date,omitempty"`
}

// UpdateTontineRequest carries a partial tontine update.
type UpdateTontineRequest struct {
	ContributionAmount *decimal.Decimal `json:"contribution_amount,omitempty"`
	Period             *string          `json:"period,omitempty"`
	Description        *string          `json:"description,omitempty"`
	EndDate            *tontine.Date    `json:"end_date,omitempty"`
	Status             *string          `json:"status,omitempty"`
}

// =============================================================================
// ENROLLMENT
// =============================================================================

// EnrollRequest is the request to enroll a member in a tontine.
type EnrollRequest struct {
	MemberID int64 `json:"member_id"`
	Parts    int   `json:"parts"`
}

// EnrollmentDTO is the effective membership after enrollment.
type EnrollmentDTO struct {
	MemberID  int64 `json:"member_id"`
	TontineID int64 `json:"tontine_id"`
	Parts     int   `json:"parts"`
}

// RosterEntryDTO is one tontine member with participation details.
type RosterEntryDTO struct {
	Member               MemberDTO       `json:"member"`
	Parts                int             `json:"parts"`
	ExpectedContribution decimal.Decimal `json:"expected_contribution"`
}

// ParticipationDTO is one tontine a member belongs to.
type ParticipationDTO struct {
	Tontine TontineDTO `json:"tontine"`
	Parts   int        `json:"parts"`
}

// =============================================================================
// SESSION
// =============================================================================

// SessionDTO represents a session in API responses.
type SessionDTO struct {
	ID        int64        `json:"id"`
	TontineID int64        `json:"tontine_id"`
	Date      tontine.Date `json:"date"`
	Location  string       `json:"location,omitempty"`
	Status    string       `json:"status"`
	Notes     string       `json:"notes,omitempty"`
}

// CreateSessionRequest is the request to schedule a session.
type CreateSessionRequest struct {
	TontineID int64        `json:"tontine_id"`
	Date      tontine.Date `json:"date"`
	Location  string       `json:"location,omitempty"`
	Notes     string       `json:"notes,omitempty"`
}

// UpdateSessionRequest carries a partial session update. Status moves only
// through the record/close/cancel endpoints.
type UpdateSessionRequest struct {
	Date     *tontine.Date `json:"date,omitempty"`
	Location *string       `json:"location,omitempty"`
	Notes    *string       `json:"notes,omitempty"`
}

// MeetingRecordDTO is one attendance-sheet line.
type MeetingRecordDTO struct {
	MemberID   int64           `json:"member_id"`
	Present    bool            `json:"present"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// RecordMeetingRequest is the request to record a meeting. A zero or
// absent absence_penalty selects the default.
type RecordMeetingRequest struct {
	Records        []MeetingRecordDTO `json:"records"`
	AbsencePenalty decimal.Decimal    `json:"absence_penalty"`
}

// MeetingResultDTO summarizes what recording created.
type MeetingResultDTO struct {
	SessionID            int64           `json:"session_id"`
	Status               string          `json:"status"`
	ContributionsCreated int             `json:"contributions_created"`
	PenaltiesCreated     int             `json:"penalties_created"`
	TotalContributions   decimal.Decimal `json:"total_contributions"`
	TotalPenalties       decimal.Decimal `json:"total_penalties"`
	Penalties            []PenaltyDTO    `json:"penalties"`
}

// CloseResultDTO summarizes a finalized session.
type CloseResultDTO struct {
	SessionID          int64           `json:"session_id"`
	Status             string          `json:"status"`
	TotalContributions decimal.Decimal `json:"total_contributions"`
	TotalPenalties     decimal.Decimal `json:"total_penalties"`
	Penalties          []PenaltyDTO    `json:"penalties"`
}

// =============================================================================
// CONTRIBUTION
// =============================================================================

// ContributionDTO represents a contribution in API responses.
type ContributionDTO struct {
	ID        int64           `json:"id"`
	MemberID  int64           `json:"member_id"`
	SessionID int64           `json:"session_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    tontine.Date    `json:"paid_on"`
}

// ContributionInput is one contribution row in a bulk insert. paid_on
// defaults to the session date when absent.
type ContributionInput struct {
	MemberID  int64           `json:"member_id"`
	SessionID int64           `json:"session_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    tontine.Date    `json:"paid_on"`
}

// BulkContributionsRequest inserts several contributions atomically.
type BulkContributionsRequest struct {
	Contributions []ContributionInput `json:"contributions"`
}

// =============================================================================
// PENALTY
// =============================================================================

// PenaltyDTO represents a penalty in API responses.
type PenaltyDTO struct {
	ID        int64           `json:"id"`
	MemberID  int64           `json:"member_id"`
	SessionID *int64          `json:"session_id,omitempty"`
	TontineID *int64          `json:"tontine_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
	Date      tontine.Date    `json:"date"`
	Status    string          `json:"status"`
	Kind      string          `json:"kind"`
}

// CreatePenaltyRequest is the request to issue a manual penalty (late
// arrival, misconduct, ...). Absence penalties are issued by meeting
// recording, not through this endpoint.
type CreatePenaltyRequest struct {
	MemberID  int64           `json:"member_id"`
	SessionID *int64          `json:"session_id,omitempty"`
	TontineID *int64          `json:"tontine_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason,omitempty"`
	Date      tontine.Date    `json:"date"`
	Kind      string          `json:"kind,omitempty"`
}

// UpdatePenaltyRequest settles or re-prices a penalty.
type UpdatePenaltyRequest struct {
	Status *string          `json:"status,omitempty"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
}

// =============================================================================
// CREDIT
// =============================================================================

// CreditDTO represents a credit in API responses.
type CreditDTO struct {
	ID          int64           `json:"id"`
	MemberID    int64           `json:"member_id"`
	Principal   decimal.Decimal `json:"principal"`
	Rate        decimal.Decimal `json:"rate"`
	Balance     decimal.Decimal `json:"balance"`
	Purpose     string          `json:"purpose,omitempty"`
	RequestedOn tontine.Date    `json:"requested_on"`
	DueOn       tontine.Date    `json:"due_on"`
	Status      string          `json:"status"`
}

// CreateCreditRequest is the request to open a credit.
type CreateCreditRequest struct {
	MemberID    int64           `json:"member_id"`
	Principal   decimal.Decimal `json:"principal"`
	Rate        decimal.Decimal `json:"rate"`
	Purpose     string          `json:"purpose,omitempty"`
	RequestedOn tontine.Date    `json:"requested_on"`
	DueOn       tontine.Date    `json:"due_on"`
}

// RepayRequest applies a repayment to a credit.
type RepayRequest struct {
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// ReclassifyResultDTO reports an overdue sweep.
type ReclassifyResultDTO struct {
	Reclassified int          `json:"reclassified"`
	AsOf         tontine.Date `json:"as_of"`
}

// =============================================================================
// TOUR
// =============================================================================

// TourDTO represents a payout in API responses.
type TourDTO struct {
	ID        int64           `json:"id"`
	TontineID int64           `json:"tontine_id"`
	MemberID  int64           `json:"member_id"`
	Number    int             `json:"number"`
	Date      tontine.Date    `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	SessionID *int64          `json:"session_id,omitempty"`
}

// CreateTourRequest awards a payout. A zero or absent number auto-assigns
// the next one in the tontine's sequence.
type CreateTourRequest struct {
	TontineID int64           `json:"tontine_id"`
	MemberID  int64           `json:"member_id"`
	Number    int             `json:"number,omitempty"`
	Date      tontine.Date    `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	SessionID *int64          `json:"session_id,omitempty"`
}

// NextNumberDTO is the next free tour number for a tontine.
type NextNumberDTO struct {
	TontineID  int64 `json:"tontine_id"`
	NextNumber int   `json:"next_number"`
}

// =============================================================================
// PROJECT
// =============================================================================

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID            int64           `json:"id"`
	TontineID     int64           `json:"tontine_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Budget        decimal.Decimal `json:"budget"`
	Allocated     decimal.Decimal `json:"allocated"`
	Remaining     decimal.Decimal `json:"remaining"`
	StartDate     tontine.Date    `json:"start_date"`
	EndDate       *tontine.Date   `json:"end_date,omitempty"`
	Status        string          `json:"status"`
	ResponsibleID *int64          `json:"responsible_id,omitempty"`
}

// CreateProjectRequest is the request to register a project.
type CreateProjectRequest struct {
	TontineID     int64           `json:"tontine_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Budget        decimal.Decimal `json:"budget"`
	Allocated     decimal.Decimal `json:"allocated"`
	StartDate     tontine.Date    `json:"start_date"`
	EndDate       *tontine.Date   `json:"end_date,omitempty"`
	ResponsibleID *int64          `json:"responsible_id,omitempty"`
	Participants  []int64         `json:"participants,omitempty"`
}

// AllocateRequest increases a project's allocation.
type AllocateRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// AddParticipantRequest enrolls a member as project participant.
type AddParticipantRequest struct {
	MemberID int64 `json:"member_id"`
}

// =============================================================================
// REPORTS
// =============================================================================

// DashboardDTO is the global financial snapshot.
type DashboardDTO struct {
	Caisse               decimal.Decimal `json:"caisse"`
	ActiveMembers        int             `json:"active_members"`
	ActiveCredits        int             `json:"active_credits"`
	UnpaidPenalties      int             `json:"unpaid_penalties"`
	ActiveProjects       int             `json:"active_projects"`
	TotalContributions   decimal.Decimal `json:"total_contributions"`
	TotalTours           decimal.Decimal `json:"total_tours"`
	TotalPenaltiesUnpaid decimal.Decimal `json:"total_penalties_unpaid"`
}

// MemberStatementDTO is a member's financial position.
type MemberStatementDTO struct {
	Member            MemberDTO         `json:"member"`
	Contributions     []ContributionDTO `json:"contributions"`
	TotalContributed  decimal.Decimal   `json:"total_contributed"`
	OutstandingCredit decimal.Decimal   `json:"outstanding_credit"`
	UnpaidPenalties   decimal.Decimal   `json:"unpaid_penalties"`
	NetBalance        decimal.Decimal   `json:"net_balance"`
}

// MemberLineDTO identifies a member on a report line.
type MemberLineDTO struct {
	MemberID  int64  `json:"member_id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
}

// ContributionLineDTO is a contribution with its member.
type ContributionLineDTO struct {
	Contribution ContributionDTO `json:"contribution"`
	Member       MemberLineDTO   `json:"member"`
}

// PenaltyLineDTO is a penalty with its member.
type PenaltyLineDTO struct {
	Penalty PenaltyDTO    `json:"penalty"`
	Member  MemberLineDTO `json:"member"`
}

// TourLineDTO is a tour with its beneficiary.
type TourLineDTO struct {
	Tour   TourDTO       `json:"tour"`
	Member MemberLineDTO `json:"member"`
}

// SessionReportDTO is the meeting minutes document.
type SessionReportDTO struct {
	Session            SessionDTO            `json:"session"`
	Tontine            TontineDTO            `json:"tontine"`
	Contributions      []ContributionLineDTO `json:"contributions"`
	Tour               *TourLineDTO          `json:"tour,omitempty"`
	Absentees          []MemberLineDTO       `json:"absentees"`
	Penalties          []PenaltyLineDTO      `json:"penalties"`
	TotalContributions decimal.Decimal       `json:"total_contributions"`
	TotalPenalties     decimal.Decimal       `json:"total_penalties"`
}

// ProjectFundingDTO summarizes one project's budget consumption.
type ProjectFundingDTO struct {
	ProjectID int64           `json:"project_id"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Budget    decimal.Decimal `json:"budget"`
	Allocated decimal.Decimal `json:"allocated"`
	Remaining decimal.Decimal `json:"remaining"`
}

// TrendPointDTO is one session in the trailing trend series.
type TrendPointDTO struct {
	Date               tontine.Date    `json:"date"`
	TotalContributions decimal.Decimal `json:"total_contributions"`
	Attendance         int             `json:"attendance"`
}

// SynthesisDTO is the general-assembly report.
type SynthesisDTO struct {
	Dashboard DashboardDTO        `json:"dashboard"`
	Projects  []ProjectFundingDTO `json:"projects"`
	Trend     []TrendPointDTO     `json:"trend"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toMemberDTO(m tontine.Member) MemberDTO {
	return MemberDTO{
		ID:         m.ID,
		Name:       m.Name,
		FirstName:  m.FirstName,
		Phone:      m.Phone,
		Email:      m.Email,
		Address:    m.Address,
		Commune:    m.Commune,
		Status:     string(m.Status),
		EnrolledOn: m.EnrolledOn,
	}
}

func toTontineDTO(t tontine.Tontine) TontineDTO {
	return TontineDTO{
		ID:                 t.ID,
		Kind:               string(t.Kind),
		ContributionAmount: t.ContributionAmount,
		Period:             t.Period,
		Description:        t.Description,
		StartDate:          t.StartDate,
		EndDate:            t.EndDate,
		Status:             string(t.Status),
	}
}

func toSessionDTO(s tontine.Session) SessionDTO {
	return SessionDTO{
		ID:        s.ID,
		TontineID: s.TontineID,
		Date:      s.Date,
		Location:  s.Location,
		Status:    string(s.Status),
		Notes:     s.Notes,
	}
}

func toContributionDTO(c tontine.Contribution) ContributionDTO {
	return ContributionDTO{
		ID:        c.ID,
		MemberID:  c.MemberID,
		SessionID: c.SessionID,
		Amount:    c.Amount,
		PaidOn:    c.PaidOn,
	}
}

func toPenaltyDTO(p tontine.Penalty) PenaltyDTO {
	return PenaltyDTO{
		ID:        p.ID,
		MemberID:  p.MemberID,
		SessionID: p.SessionID,
		TontineID: p.TontineID,
		Amount:    p.Amount,
		Reason:    p.Reason,
		Date:      p.Date,
		Status:    string(p.Status),
		Kind:      string(p.Kind),
	}
}

func toPenaltyDTOs(ps []tontine.Penalty) []PenaltyDTO {
	dtos := make([]PenaltyDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toPenaltyDTO(p)
	}
	return dtos
}

func toCreditDTO(c tontine.Credit) CreditDTO {
	return CreditDTO{
		ID:          c.ID,
		MemberID:    c.MemberID,
		Principal:   c.Principal,
		Rate:        c.Rate,
		Balance:     c.Balance,
		Purpose:     c.Purpose,
		RequestedOn: c.RequestedOn,
		DueOn:       c.DueOn,
		Status:      string(c.Status),
	}
}

func toTourDTO(t tontine.Tour) TourDTO {
	return TourDTO{
		ID:        t.ID,
		TontineID: t.TontineID,
		MemberID:  t.MemberID,
		Number:    t.Number,
		Date:      t.Date,
		Amount:    t.Amount,
		SessionID: t.SessionID,
	}
}

func toProjectDTO(p tontine.Project) ProjectDTO {
	return ProjectDTO{
		ID:            p.ID,
		TontineID:     p.TontineID,
		Name:          p.Name,
		Description:   p.Description,
		Budget:        p.Budget,
		Allocated:     p.Allocated,
		Remaining:     p.Remaining(),
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		Status:        string(p.Status),
		ResponsibleID: p.ResponsibleID,
	}
}

func toDashboardDTO(d tontine.DashboardStats) DashboardDTO {
	return DashboardDTO{
		Caisse:               d.Caisse,
		ActiveMembers:        d.ActiveMembers,
		ActiveCredits:        d.ActiveCredits,
		UnpaidPenalties:      d.UnpaidPenalties,
		ActiveProjects:       d.ActiveProjects,
		TotalContributions:   d.TotalContributions,
		TotalTours:           d.TotalTours,
		TotalPenaltiesUnpaid: d.TotalPenaltiesUnpaid,
	}
}

func toMemberLineDTO(l tontine.MemberLine) MemberLineDTO {
	return MemberLineDTO{MemberID: l.MemberID, Name: l.Name, FirstName: l.FirstName}
}

func toSessionReportDTO(r tontine.SessionReport) SessionReportDTO {
	dto := SessionReportDTO{
		Session:            toSessionDTO(r.Session),
		Tontine:            toTontineDTO(r.Tontine),
		Contributions:      []ContributionLineDTO{},
		Absentees:          []MemberLineDTO{},
		Penalties:          []PenaltyLineDTO{},
		TotalContributions: r.TotalContributions,
		TotalPenalties:     r.TotalPenalties,
	}
	for _, c := range r.Contributions {
		dto.Contributions = append(dto.Contributions, ContributionLineDTO{
			Contribution: toContributionDTO(c.Contribution),
			Member:       toMemberLineDTO(c.Member),
		})
	}
	for _, p := range r.Penalties {
		dto.Penalties = append(dto.Penalties, PenaltyLineDTO{
			Penalty: toPenaltyDTO(p.Penalty),
			Member:  toMemberLineDTO(p.Member),
		})
	}
	for _, a := range r.Absentees {
		dto.Absentees = append(dto.Absentees, toMemberLineDTO(a))
	}
	if r.Tour != nil {
		dto.Tour = &TourLineDTO{
			Tour:   toTourDTO(r.Tour.Tour),
			Member: toMemberLineDTO(r.Tour.Member),
		}
	}
	return dto
}

func toSynthesisDTO(s tontine.AssemblySynthesis) SynthesisDTO {
	dto := SynthesisDTO{
		Dashboard: toDashboardDTO(s.Dashboard),
		Projects:  []ProjectFundingDTO{},
		Trend:     []TrendPointDTO{},
	}
	for _, p := range s.Projects {
		dto.Projects = append(dto.Projects, ProjectFundingDTO{
			ProjectID: p.ProjectID,
			Name:      p.Name,
			Status:    string(p.Status),
			Budget:    p.Budget,
			Allocated: p.Allocated,
			Remaining: p.Remaining,
		})
	}
	for _, t := range s.Trend {
		dto.Trend = append(dto.Trend, TrendPointDTO{
			Date:               t.Date,
			TotalContributions: t.TotalContributions,
			Attendance:         t.Attendance,
		})
	}
	return dto
}
