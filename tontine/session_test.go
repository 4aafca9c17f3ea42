package tontine_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tontine-engine/tontine"
)

// =============================================================================
// MEETING RECORDING
// =============================================================================

func TestRecordMeeting_AbsencePenaltyOnPresenceTontine(t *testing.T) {
	// GIVEN: A presence tontine with two members, one absent
	// WHEN: Recording the meeting with the default penalty
	// THEN: One contribution and one unpaid 5000 absence penalty

	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	result, err := engine.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: alice.ID, Present: true, AmountPaid: dec("10000")},
		{MemberID: bob.ID, Present: false},
	}, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ContributionsCreated)
	assert.Equal(t, 1, result.PenaltiesCreated)
	require.Len(t, result.Penalties, 1)

	p := result.Penalties[0]
	assert.Equal(t, bob.ID, p.MemberID)
	assert.True(t, p.Amount.Equal(tontine.DefaultAbsencePenalty))
	assert.Equal(t, tontine.PenaltyUnpaid, p.Status)
	assert.Equal(t, tontine.PenaltyAbsence, p.Kind)
	assert.Equal(t, tontine.AbsenceReason, p.Reason)
	require.NotNil(t, p.SessionID)
	assert.Equal(t, sess.ID, *p.SessionID)
}

func TestRecordMeeting_CustomAbsencePenalty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	result, err := engine.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: bob.ID, Present: false},
	}, dec("2500"))
	require.NoError(t, err)

	require.Len(t, result.Penalties, 1)
	assert.True(t, result.Penalties[0].Amount.Equal(dec("2500")))
}

func TestRecordMeeting_NoAbsencePenaltyOnOptionalTontine(t *testing.T) {
	// GIVEN: An optional tontine
	// WHEN: A member is absent at the meeting
	// THEN: No penalty is issued

	s := newTestStore(t)
	ctx := context.Background()
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	result, err := engine.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: bob.ID, Present: false},
	}, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, 0, result.PenaltiesCreated)
}

func TestRecordMeeting_SecondRecordingRejected(t *testing.T) {
	// GIVEN: A session whose meeting was already recorded
	// WHEN: Recording again
	// THEN: Conflict, and no second penalty lands

	s := newTestStore(t)
	ctx := context.Background()
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	records := []tontine.MeetingRecord{{MemberID: bob.ID, Present: false}}

	_, err := engine.RecordMeeting(ctx, sess.ID, records, decimal.Zero)
	require.NoError(t, err)

	_, err = engine.RecordMeeting(ctx, sess.ID, records, decimal.Zero)
	assert.True(t, tontine.IsConflict(err), "got %v", err)

	penalties, err := s.ListPenalties(ctx, tontine.PenaltyFilter{SessionID: &sess.ID})
	require.NoError(t, err)
	assert.Len(t, penalties, 1, "penalty must be issued exactly once")
}

func TestRecordMeeting_NegativeAmountFailsAtomically(t *testing.T) {
	// GIVEN: A sheet where the second line carries a negative amount
	// WHEN: Recording the meeting
	// THEN: InvalidArgument, and the first line's contribution rolled back

	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	_, err := engine.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: alice.ID, Present: true, AmountPaid: dec("10000")},
		{MemberID: bob.ID, Present: true, AmountPaid: dec("-1")},
	}, decimal.Zero)
	assert.True(t, tontine.IsInvalidArgument(err), "got %v", err)

	contributions, err := s.ListContributions(ctx, tontine.ContributionFilter{SessionID: &sess.ID})
	require.NoError(t, err)
	assert.Empty(t, contributions, "partial recording must not persist")

	sess2, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, tontine.SessionScheduled, sess2.Status)
}

func TestRecordMeeting_UnknownMemberSkipped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	result, err := engine.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: alice.ID, Present: true, AmountPaid: dec("10000")},
		{MemberID: 999, Present: true, AmountPaid: dec("10000")},
	}, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ContributionsCreated)
}

func TestRecordMeeting_NegativePenaltyRejected(t *testing.T) {
	s := newTestStore(t)
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	_, err := engine.RecordMeeting(context.Background(), sess.ID, nil, dec("-5000"))
	assert.True(t, tontine.IsInvalidArgument(err), "got %v", err)
}

// =============================================================================
// CLOSE AND CANCEL
// =============================================================================

func TestCloseSession_OnlyFromHeld(t *testing.T) {
	// GIVEN: A scheduled session (meeting not recorded)
	// WHEN: Closing it directly
	// THEN: Conflict

	s := newTestStore(t)
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	_, err := engine.CloseSession(context.Background(), sess.ID)
	assert.True(t, tontine.IsConflict(err), "got %v", err)
}

func TestCloseSession_CreatesNothing(t *testing.T) {
	// GIVEN: A held session with recorded outcomes
	// WHEN: Closing it
	// THEN: Totals are returned but no new penalties or contributions appear

	s := newTestStore(t)
	ctx := context.Background()
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	_, err := engine.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: bob.ID, Present: false},
	}, decimal.Zero)
	require.NoError(t, err)

	result, err := engine.CloseSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, tontine.SessionClosed, result.Status)
	assert.True(t, result.TotalPenalties.Equal(tontine.DefaultAbsencePenalty))

	penalties, err := s.ListPenalties(ctx, tontine.PenaltyFilter{SessionID: &sess.ID})
	require.NoError(t, err)
	assert.Len(t, penalties, 1)

	// Closing twice is a conflict
	_, err = engine.CloseSession(ctx, sess.ID)
	assert.True(t, tontine.IsConflict(err), "got %v", err)
}

func TestCancelSession_FromScheduledAndHeldOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	require.NoError(t, engine.CancelSession(ctx, sess.ID))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, tontine.SessionCancelled, got.Status)

	// Cancelled is terminal
	err = engine.CancelSession(ctx, sess.ID)
	assert.True(t, tontine.IsConflict(err), "got %v", err)
}

// =============================================================================
// BULK CONTRIBUTIONS
// =============================================================================

func TestBulkContributions_AtomicValidation(t *testing.T) {
	// GIVEN: A batch where the second row references a missing member
	// WHEN: Inserting
	// THEN: Nothing lands

	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	_, err := engine.BulkContributions(ctx, []tontine.Contribution{
		{MemberID: alice.ID, SessionID: sess.ID, Amount: dec("10000")},
		{MemberID: 999, SessionID: sess.ID, Amount: dec("10000")},
	})
	assert.True(t, tontine.IsNotFound(err), "got %v", err)

	contributions, err := s.ListContributions(ctx, tontine.ContributionFilter{SessionID: &sess.ID})
	require.NoError(t, err)
	assert.Empty(t, contributions)
}

func TestBulkContributions_DefaultsPaidOnToSessionDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	created, err := engine.BulkContributions(ctx, []tontine.Contribution{
		{MemberID: alice.ID, SessionID: sess.ID, Amount: dec("10000")},
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.True(t, created[0].PaidOn.Equal(sess.Date))
}

func TestAttendance_ReturnsRoster(t *testing.T) {
	s := newTestStore(t)
	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 1)
	sess := seedSession(t, s, tn.ID, date(2025, time.March, 10))

	engine := &tontine.SessionEngine{Store: s}
	sheet, err := engine.Attendance(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, sheet, 2)
}
