package tontine_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tontine-engine/tontine"
	memstore "github.com/warp/tontine-engine/tontine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *memstore.Memory {
	t.Helper()
	return memstore.NewMemory()
}

func date(year int, month time.Month, day int) tontine.Date {
	return tontine.NewDate(year, month, day)
}

func dec(s string) decimal.Decimal {
	return tontine.MustDecimal(s)
}

func seedMember(t *testing.T, s tontine.Store, name string) tontine.Member {
	t.Helper()
	m := tontine.Member{
		Name:       name,
		Status:     tontine.MemberActive,
		EnrolledOn: date(2025, time.January, 1),
	}
	require.NoError(t, s.CreateMember(context.Background(), &m))
	return m
}

func seedTontine(t *testing.T, s tontine.Store, kind tontine.TontineKind, amount string) tontine.Tontine {
	t.Helper()
	tn := tontine.Tontine{
		Kind:               kind,
		ContributionAmount: dec(amount),
		Period:             "monthly",
		StartDate:          date(2025, time.January, 1),
		Status:             tontine.TontineActive,
	}
	require.NoError(t, s.CreateTontine(context.Background(), &tn))
	return tn
}

func seedSession(t *testing.T, s tontine.Store, tontineID int64, d tontine.Date) tontine.Session {
	t.Helper()
	sess := tontine.Session{
		TontineID: tontineID,
		Date:      d,
		Status:    tontine.SessionScheduled,
	}
	require.NoError(t, s.CreateSession(context.Background(), &sess))
	return sess
}

func enrollMember(t *testing.T, s tontine.TxStore, memberID, tontineID int64, parts int) {
	t.Helper()
	engine := &tontine.EnrollmentEngine{Store: s}
	_, err := engine.Enroll(context.Background(), memberID, tontineID, parts)
	require.NoError(t, err)
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestScenario_FullMeetingCycle(t *testing.T) {
	// GIVEN: A presence tontine with three enrolled members
	// WHEN: A session runs its full lifecycle: record (one absence), settle
	//       the penalty, award the payout, close
	// THEN: The caisse reflects contributions + paid penalty - payout

	s := newTestStore(t)
	ctx := context.Background()

	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	chloe := seedMember(t, s, "Chloe")

	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 1)
	enrollMember(t, s, chloe.ID, tn.ID, 1)

	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	// Record the meeting: Chloe is absent
	sessions := &tontine.SessionEngine{Store: s}
	result, err := sessions.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: alice.ID, Present: true, AmountPaid: dec("10000")},
		{MemberID: bob.ID, Present: true, AmountPaid: dec("10000")},
		{MemberID: chloe.ID, Present: false},
	}, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ContributionsCreated)
	assert.Equal(t, 1, result.PenaltiesCreated)
	assert.True(t, result.TotalContributions.Equal(dec("20000")),
		"got %s", result.TotalContributions)
	assert.True(t, result.TotalPenalties.Equal(tontine.DefaultAbsencePenalty))
	assert.Equal(t, tontine.SessionHeld, result.Status)

	// Chloe settles her penalty
	require.Len(t, result.Penalties, 1)
	paid := tontine.PenaltyPaid
	_, err = s.UpdatePenalty(ctx, result.Penalties[0].ID, tontine.PenaltyUpdate{Status: &paid})
	require.NoError(t, err)

	// Alice receives the payout for this session
	rotation := &tontine.RotationEngine{Store: s}
	tour, err := rotation.CreateTour(ctx, tontine.TourRequest{
		TontineID: tn.ID,
		MemberID:  alice.ID,
		Date:      sess.Date,
		Amount:    dec("20000"),
		SessionID: &sess.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tour.Number)

	// Close the session
	closed, err := sessions.CloseSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, tontine.SessionClosed, closed.Status)
	assert.True(t, closed.TotalContributions.Equal(dec("20000")))

	// caisse = 20000 contributions + 5000 paid penalty - 20000 payout
	reports := &tontine.AggregationEngine{Store: s}
	caisse, err := reports.CashPosition(ctx)
	require.NoError(t, err)
	assert.True(t, caisse.Equal(dec("5000")), "caisse = %s", caisse)

	// The session report shows the payout and no absentee among contributors
	report, err := reports.SessionReportFor(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, report.Tour)
	assert.Equal(t, alice.ID, report.Tour.Tour.MemberID)
	require.Len(t, report.Absentees, 1)
	assert.Equal(t, chloe.ID, report.Absentees[0].MemberID)
}

func TestScenario_CreditLifecycleAffectsCaisse(t *testing.T) {
	// GIVEN: A pool funded by contributions
	// WHEN: A member takes a credit, partially repays, then fully repays
	// THEN: The caisse tracks the outstanding balance at every step

	s := newTestStore(t)
	ctx := context.Background()

	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 2)
	enrollMember(t, s, bob.ID, tn.ID, 1)

	sess := seedSession(t, s, tn.ID, date(2025, time.February, 1))
	sessions := &tontine.SessionEngine{Store: s}
	_, err := sessions.BulkContributions(ctx, []tontine.Contribution{
		{MemberID: alice.ID, SessionID: sess.ID, Amount: dec("20000")},
		{MemberID: bob.ID, SessionID: sess.ID, Amount: dec("10000")},
	})
	require.NoError(t, err)

	reports := &tontine.AggregationEngine{Store: s}
	caisse, err := reports.CashPosition(ctx)
	require.NoError(t, err)
	require.True(t, caisse.Equal(dec("30000")))

	// Bob borrows 10000 at 10%: balance opens at 11000
	credits := &tontine.CreditEngine{Store: s}
	credit, err := credits.RequestCredit(ctx, tontine.CreditRequest{
		MemberID:    bob.ID,
		Principal:   dec("10000"),
		Rate:        dec("10"),
		RequestedOn: date(2025, time.February, 2),
		DueOn:       date(2025, time.May, 2),
	})
	require.NoError(t, err)
	assert.True(t, credit.Balance.Equal(dec("11000")), "balance = %s", credit.Balance)

	caisse, err = reports.CashPosition(ctx)
	require.NoError(t, err)
	assert.True(t, caisse.Equal(dec("19000")), "caisse = %s", caisse)

	// Partial repayment reduces the outstanding balance
	credit, err = credits.Repay(ctx, credit.ID, dec("6000"))
	require.NoError(t, err)
	assert.True(t, credit.Balance.Equal(dec("5000")))
	assert.Equal(t, tontine.CreditActive, credit.Status)

	caisse, err = reports.CashPosition(ctx)
	require.NoError(t, err)
	assert.True(t, caisse.Equal(dec("25000")), "caisse = %s", caisse)

	// Full repayment closes the credit and restores the pool
	credit, err = credits.Repay(ctx, credit.ID, dec("5000"))
	require.NoError(t, err)
	assert.Equal(t, tontine.CreditRepaid, credit.Status)
	assert.True(t, credit.Balance.IsZero())

	caisse, err = reports.CashPosition(ctx)
	require.NoError(t, err)
	assert.True(t, caisse.Equal(dec("30000")), "caisse = %s", caisse)
}
