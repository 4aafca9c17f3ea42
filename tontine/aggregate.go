/*
aggregate.go - Cash position and report figures

PURPOSE:
  Computes the instantaneous financial position and every dashboard/report
  figure from the entity set. The cash position ("caisse") is the single
  authoritative solvency number:

    caisse = (sum of contributions + sum of PAID penalties)
           - (sum of tour payouts
              + outstanding credit balances (Active/Overdue)
              + in-progress project allocations)

  It is a pure derived view: recomputed in one pass over the store on
  demand, never cached, so it cannot drift from the entities it summarizes.
  Every report that shows "funds on hand" goes through CashPosition.
*/
package tontine

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// AggregationEngine computes derived financial views. It only reads.
type AggregationEngine struct {
	Store Store
}

// =============================================================================
// CASH POSITION
// =============================================================================

// CashPosition computes the caisse over the whole entity set.
func (e *AggregationEngine) CashPosition(ctx context.Context) (decimal.Decimal, error) {
	in, out, err := e.flows(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return in.Sub(out), nil
}

// flows returns total inflows (contributions + paid penalties) and
// outflows (tours + outstanding credit balances + in-progress allocations).
func (e *AggregationEngine) flows(ctx context.Context) (in, out decimal.Decimal, err error) {
	in, out = decimal.Zero, decimal.Zero

	contributions, err := e.Store.ListContributions(ctx, ContributionFilter{})
	if err != nil {
		return in, out, err
	}
	for _, c := range contributions {
		in = in.Add(c.Amount)
	}

	paid := PenaltyPaid
	penalties, err := e.Store.ListPenalties(ctx, PenaltyFilter{Status: &paid})
	if err != nil {
		return in, out, err
	}
	for _, p := range penalties {
		in = in.Add(p.Amount)
	}

	tours, err := e.Store.ListTours(ctx, TourFilter{})
	if err != nil {
		return in, out, err
	}
	for _, t := range tours {
		out = out.Add(t.Amount)
	}

	credits, err := e.Store.ListCredits(ctx, CreditFilter{Statuses: []CreditStatus{CreditActive, CreditOverdue}})
	if err != nil {
		return in, out, err
	}
	for _, c := range credits {
		out = out.Add(c.Balance)
	}

	inProgress := ProjectInProgress
	projects, err := e.Store.ListProjects(ctx, ProjectFilter{Status: &inProgress})
	if err != nil {
		return in, out, err
	}
	for _, p := range projects {
		out = out.Add(p.Allocated)
	}

	return in, out, nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

// DashboardStats is the global financial snapshot.
type DashboardStats struct {
	Caisse               decimal.Decimal
	ActiveMembers        int
	ActiveCredits        int
	UnpaidPenalties      int
	ActiveProjects       int
	TotalContributions   decimal.Decimal
	TotalTours           decimal.Decimal
	TotalPenaltiesUnpaid decimal.Decimal
}

// Dashboard computes the caisse plus headline counts and totals.
func (e *AggregationEngine) Dashboard(ctx context.Context) (DashboardStats, error) {
	stats := DashboardStats{
		TotalContributions:   decimal.Zero,
		TotalTours:           decimal.Zero,
		TotalPenaltiesUnpaid: decimal.Zero,
	}

	caisse, err := e.CashPosition(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	stats.Caisse = caisse

	members, err := e.Store.ListMembers(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	for _, m := range members {
		if m.Status == MemberActive {
			stats.ActiveMembers++
		}
	}

	credits, err := e.Store.ListCredits(ctx, CreditFilter{Statuses: []CreditStatus{CreditActive, CreditOverdue}})
	if err != nil {
		return DashboardStats{}, err
	}
	stats.ActiveCredits = len(credits)

	unpaid := PenaltyUnpaid
	penalties, err := e.Store.ListPenalties(ctx, PenaltyFilter{Status: &unpaid})
	if err != nil {
		return DashboardStats{}, err
	}
	stats.UnpaidPenalties = len(penalties)
	for _, p := range penalties {
		stats.TotalPenaltiesUnpaid = stats.TotalPenaltiesUnpaid.Add(p.Amount)
	}

	inProgress := ProjectInProgress
	projects, err := e.Store.ListProjects(ctx, ProjectFilter{Status: &inProgress})
	if err != nil {
		return DashboardStats{}, err
	}
	stats.ActiveProjects = len(projects)

	contributions, err := e.Store.ListContributions(ctx, ContributionFilter{})
	if err != nil {
		return DashboardStats{}, err
	}
	for _, c := range contributions {
		stats.TotalContributions = stats.TotalContributions.Add(c.Amount)
	}

	tours, err := e.Store.ListTours(ctx, TourFilter{})
	if err != nil {
		return DashboardStats{}, err
	}
	for _, t := range tours {
		stats.TotalTours = stats.TotalTours.Add(t.Amount)
	}

	return stats, nil
}

// =============================================================================
// MEMBER STATEMENT
// =============================================================================

// MemberStatement is a member's financial position: what they paid in,
// what they owe, and the resulting net balance.
type MemberStatement struct {
	Member            Member
	Contributions     []Contribution
	TotalContributed  decimal.Decimal
	OutstandingCredit decimal.Decimal
	UnpaidPenalties   decimal.Decimal
	NetBalance        decimal.Decimal // contributed - credit - unpaid penalties
}

// MemberStatementFor builds the statement for one member.
func (e *AggregationEngine) MemberStatementFor(ctx context.Context, memberID int64) (MemberStatement, error) {
	m, err := e.Store.GetMember(ctx, memberID)
	if err != nil {
		return MemberStatement{}, err
	}

	st := MemberStatement{
		Member:            m,
		TotalContributed:  decimal.Zero,
		OutstandingCredit: decimal.Zero,
		UnpaidPenalties:   decimal.Zero,
	}

	st.Contributions, err = e.Store.ListContributions(ctx, ContributionFilter{MemberID: &memberID})
	if err != nil {
		return MemberStatement{}, err
	}
	for _, c := range st.Contributions {
		st.TotalContributed = st.TotalContributed.Add(c.Amount)
	}

	credits, err := e.Store.ListCredits(ctx, CreditFilter{
		MemberID: &memberID,
		Statuses: []CreditStatus{CreditActive, CreditOverdue},
	})
	if err != nil {
		return MemberStatement{}, err
	}
	for _, c := range credits {
		st.OutstandingCredit = st.OutstandingCredit.Add(c.Balance)
	}

	unpaid := PenaltyUnpaid
	penalties, err := e.Store.ListPenalties(ctx, PenaltyFilter{MemberID: &memberID, Status: &unpaid})
	if err != nil {
		return MemberStatement{}, err
	}
	for _, p := range penalties {
		st.UnpaidPenalties = st.UnpaidPenalties.Add(p.Amount)
	}

	st.NetBalance = st.TotalContributed.Sub(st.OutstandingCredit).Sub(st.UnpaidPenalties)
	return st, nil
}

// =============================================================================
// SESSION REPORT
// =============================================================================

// MemberLine denormalizes a member reference with display fields.
type MemberLine struct {
	MemberID  int64
	Name      string
	FirstName string
}

// ContributionLine is a contribution with its member's display fields.
type ContributionLine struct {
	Contribution Contribution
	Member       MemberLine
}

// PenaltyLine is a penalty with its member's display fields.
type PenaltyLine struct {
	Penalty Penalty
	Member  MemberLine
}

// TourLine is a tour with its beneficiary's display fields.
type TourLine struct {
	Tour   Tour
	Member MemberLine
}

// SessionReport is everything a meeting minutes document needs.
type SessionReport struct {
	Session            Session
	Tontine            Tontine
	Contributions      []ContributionLine
	Tour               *TourLine // payout awarded at this session, if any
	Absentees          []MemberLine
	Penalties          []PenaltyLine
	TotalContributions decimal.Decimal
	TotalPenalties     decimal.Decimal
}

// SessionReportFor builds the report for one session. Absentees are the
// tontine's enrolled members with no contribution recorded at the session.
func (e *AggregationEngine) SessionReportFor(ctx context.Context, sessionID int64) (SessionReport, error) {
	sess, err := e.Store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionReport{}, err
	}
	t, err := e.Store.GetTontine(ctx, sess.TontineID)
	if err != nil {
		return SessionReport{}, err
	}

	report := SessionReport{
		Session:            sess,
		Tontine:            t,
		TotalContributions: decimal.Zero,
		TotalPenalties:     decimal.Zero,
	}

	contributions, err := e.Store.ListContributions(ctx, ContributionFilter{SessionID: &sessionID})
	if err != nil {
		return SessionReport{}, err
	}
	contributed := make(map[int64]bool, len(contributions))
	for _, c := range contributions {
		line, err := e.memberLine(ctx, c.MemberID)
		if err != nil {
			return SessionReport{}, err
		}
		report.Contributions = append(report.Contributions, ContributionLine{Contribution: c, Member: line})
		report.TotalContributions = report.TotalContributions.Add(c.Amount)
		contributed[c.MemberID] = true
	}

	penalties, err := e.Store.ListPenalties(ctx, PenaltyFilter{SessionID: &sessionID})
	if err != nil {
		return SessionReport{}, err
	}
	for _, p := range penalties {
		line, err := e.memberLine(ctx, p.MemberID)
		if err != nil {
			return SessionReport{}, err
		}
		report.Penalties = append(report.Penalties, PenaltyLine{Penalty: p, Member: line})
		if p.Status != PenaltyCancelled {
			report.TotalPenalties = report.TotalPenalties.Add(p.Amount)
		}
	}

	tours, err := e.Store.ListTours(ctx, TourFilter{SessionID: &sessionID})
	if err != nil {
		return SessionReport{}, err
	}
	if len(tours) > 0 {
		line, err := e.memberLine(ctx, tours[0].MemberID)
		if err != nil {
			return SessionReport{}, err
		}
		report.Tour = &TourLine{Tour: tours[0], Member: line}
	}

	memberships, err := e.Store.ListMembershipsByTontine(ctx, sess.TontineID)
	if err != nil {
		return SessionReport{}, err
	}
	for _, ms := range memberships {
		if contributed[ms.MemberID] {
			continue
		}
		line, err := e.memberLine(ctx, ms.MemberID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return SessionReport{}, err
		}
		report.Absentees = append(report.Absentees, line)
	}

	return report, nil
}

func (e *AggregationEngine) memberLine(ctx context.Context, memberID int64) (MemberLine, error) {
	m, err := e.Store.GetMember(ctx, memberID)
	if err != nil {
		return MemberLine{}, err
	}
	return MemberLine{MemberID: m.ID, Name: m.Name, FirstName: m.FirstName}, nil
}

// =============================================================================
// ASSEMBLY SYNTHESIS
// =============================================================================

// ProjectFunding summarizes one project's budget consumption.
type ProjectFunding struct {
	ProjectID int64
	Name      string
	Status    ProjectStatus
	Budget    decimal.Decimal
	Allocated decimal.Decimal
	Remaining decimal.Decimal
}

// TrendPoint is one session in the trailing trend series.
type TrendPoint struct {
	Date               Date
	TotalContributions decimal.Decimal
	Attendance         int
}

// AssemblySynthesis is the general-assembly report: global dashboard,
// project funding, and the recent session trend.
type AssemblySynthesis struct {
	Dashboard DashboardStats
	Projects  []ProjectFunding
	Trend     []TrendPoint
}

// AssemblySynthesisFor builds the synthesis, optionally scoped to one
// tontine for the project and trend sections. The trend covers sessions in
// the trailing six months from asOf, ordered by date ascending; attendance
// counts the distinct contributing members per session.
func (e *AggregationEngine) AssemblySynthesisFor(ctx context.Context, tontineID *int64, asOf Date) (AssemblySynthesis, error) {
	dashboard, err := e.Dashboard(ctx)
	if err != nil {
		return AssemblySynthesis{}, err
	}
	synthesis := AssemblySynthesis{Dashboard: dashboard}

	projects, err := e.Store.ListProjects(ctx, ProjectFilter{TontineID: tontineID})
	if err != nil {
		return AssemblySynthesis{}, err
	}
	for _, p := range projects {
		synthesis.Projects = append(synthesis.Projects, ProjectFunding{
			ProjectID: p.ID,
			Name:      p.Name,
			Status:    p.Status,
			Budget:    p.Budget,
			Allocated: p.Allocated,
			Remaining: p.Remaining(),
		})
	}

	sessions, err := e.Store.ListSessions(ctx, SessionFilter{TontineID: tontineID})
	if err != nil {
		return AssemblySynthesis{}, err
	}
	cutoff := asOf.AddMonths(-6)
	for _, sess := range sessions {
		if sess.Date.Before(cutoff) || sess.Date.After(asOf) {
			continue
		}
		sessionID := sess.ID
		contributions, err := e.Store.ListContributions(ctx, ContributionFilter{SessionID: &sessionID})
		if err != nil {
			return AssemblySynthesis{}, err
		}
		total := decimal.Zero
		attendees := make(map[int64]bool)
		for _, c := range contributions {
			total = total.Add(c.Amount)
			attendees[c.MemberID] = true
		}
		synthesis.Trend = append(synthesis.Trend, TrendPoint{
			Date:               sess.Date,
			TotalContributions: total,
			Attendance:         len(attendees),
		})
	}

	sort.Slice(synthesis.Trend, func(i, j int) bool {
		return synthesis.Trend[i].Date.Before(synthesis.Trend[j].Date)
	})

	return synthesis, nil
}
