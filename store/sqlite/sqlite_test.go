package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tontine-engine/store/sqlite"
	"github.com/warp/tontine-engine/tontine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedMember(t *testing.T, s *sqlite.Store, name, email string) tontine.Member {
	t.Helper()
	m := tontine.Member{
		Name:       name,
		Email:      email,
		Status:     tontine.MemberActive,
		EnrolledOn: tontine.NewDate(2025, time.January, 1),
	}
	require.NoError(t, s.CreateMember(context.Background(), &m))
	return m
}

func seedTontine(t *testing.T, s *sqlite.Store) tontine.Tontine {
	t.Helper()
	tn := tontine.Tontine{
		Kind:               tontine.KindPresence,
		ContributionAmount: tontine.MustDecimal("10000"),
		Period:             "monthly",
		StartDate:          tontine.NewDate(2025, time.January, 1),
		Status:             tontine.TontineActive,
	}
	require.NoError(t, s.CreateTontine(context.Background(), &tn))
	return tn
}

// =============================================================================
// ROUNDTRIPS
// =============================================================================

func TestMember_Roundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := tontine.Member{
		Name:       "Diallo",
		FirstName:  "Awa",
		Phone:      "+223 70 00 00 00",
		Email:      "awa@example.org",
		Commune:    "Commune IV",
		Status:     tontine.MemberActive,
		EnrolledOn: tontine.NewDate(2025, time.February, 14),
	}
	require.NoError(t, s.CreateMember(ctx, &m))
	require.NotZero(t, m.ID)

	got, err := s.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Name, got.Name)
	assert.Equal(t, m.FirstName, got.FirstName)
	assert.Equal(t, m.Email, got.Email)
	assert.True(t, got.EnrolledOn.Equal(m.EnrolledOn))
}

func TestCredit_DecimalPrecisionSurvives(t *testing.T) {
	// Amounts are stored as text; no float rounding may creep in.
	s := newTestStore(t)
	ctx := context.Background()
	m := seedMember(t, s, "Alice", "")

	c := tontine.Credit{
		MemberID:    m.ID,
		Principal:   tontine.MustDecimal("33333.33"),
		Rate:        tontine.MustDecimal("7.5"),
		Balance:     tontine.MustDecimal("35833.329750"),
		RequestedOn: tontine.NewDate(2025, time.March, 1),
		DueOn:       tontine.NewDate(2025, time.June, 1),
		Status:      tontine.CreditActive,
	}
	require.NoError(t, s.CreateCredit(ctx, &c))

	got, err := s.GetCredit(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(c.Balance), "got %s", got.Balance)
	assert.True(t, got.Principal.Equal(c.Principal))
}

func TestTontine_NullableEndDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tn := seedTontine(t, s)
	got, err := s.GetTontine(ctx, tn.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EndDate)

	end := tontine.NewDate(2025, time.December, 31)
	_, err = s.UpdateTontine(ctx, tn.ID, tontine.TontineUpdate{EndDate: &end})
	require.NoError(t, err)

	got, err = s.GetTontine(ctx, tn.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(end))
}

// =============================================================================
// NOT FOUND MAPPING
// =============================================================================

func TestGet_MissingRowsAreNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetMember(ctx, 999)
	assert.True(t, tontine.IsNotFound(err), "member: got %v", err)

	_, err = s.GetTontine(ctx, 999)
	assert.True(t, tontine.IsNotFound(err), "tontine: got %v", err)

	_, err = s.GetCredit(ctx, 999)
	assert.True(t, tontine.IsNotFound(err), "credit: got %v", err)

	err = s.DeleteMember(ctx, 999)
	assert.True(t, tontine.IsNotFound(err), "delete: got %v", err)

	_, err = s.UpdateSession(ctx, 999, tontine.SessionUpdate{})
	assert.True(t, tontine.IsNotFound(err), "update: got %v", err)
}

// =============================================================================
// UNIQUENESS CONSTRAINTS
// =============================================================================

func TestCreateMember_DuplicateEmailConflicts(t *testing.T) {
	s := newTestStore(t)
	seedMember(t, s, "Alice", "alice@example.org")

	dup := tontine.Member{
		Name:       "Other",
		Email:      "alice@example.org",
		EnrolledOn: tontine.NewDate(2025, time.January, 1),
	}
	err := s.CreateMember(context.Background(), &dup)
	assert.True(t, tontine.IsConflict(err), "got %v", err)

	// Empty emails are not subject to the constraint
	a := seedMember(t, s, "NoMailA", "")
	b := seedMember(t, s, "NoMailB", "")
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateMembership_DuplicatePairConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := seedMember(t, s, "Alice", "")
	tn := seedTontine(t, s)

	ms := tontine.Membership{MemberID: m.ID, TontineID: tn.ID, Parts: 1}
	require.NoError(t, s.CreateMembership(ctx, ms))

	err := s.CreateMembership(ctx, ms)
	assert.True(t, tontine.IsConflict(err), "got %v", err)
}

func TestCreateTour_ConstraintsConflict(t *testing.T) {
	// The store itself rejects duplicate beneficiaries and numbers, even
	// when the engine's pre-checks are bypassed.

	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice", "")
	bob := seedMember(t, s, "Bob", "")
	tn := seedTontine(t, s)

	first := tontine.Tour{
		TontineID: tn.ID, MemberID: alice.ID, Number: 1,
		Date:   tontine.NewDate(2025, time.March, 10),
		Amount: tontine.MustDecimal("20000"),
	}
	require.NoError(t, s.CreateTour(ctx, &first))

	sameMember := tontine.Tour{
		TontineID: tn.ID, MemberID: alice.ID, Number: 2,
		Date:   tontine.NewDate(2025, time.April, 10),
		Amount: tontine.MustDecimal("20000"),
	}
	err := s.CreateTour(ctx, &sameMember)
	assert.True(t, tontine.IsConflict(err), "duplicate member: got %v", err)

	sameNumber := tontine.Tour{
		TontineID: tn.ID, MemberID: bob.ID, Number: 1,
		Date:   tontine.NewDate(2025, time.April, 10),
		Amount: tontine.MustDecimal("20000"),
	}
	err = s.CreateTour(ctx, &sameNumber)
	assert.True(t, tontine.IsConflict(err), "duplicate number: got %v", err)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that writes a member then fails
	// WHEN: The function returns an error
	// THEN: The member write is rolled back

	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx tontine.Store) error {
		m := tontine.Member{Name: "Ghost", EnrolledOn: tontine.NewDate(2025, time.January, 1)}
		if err := tx.CreateMember(ctx, &m); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	members, err := s.ListMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestWithTx_CommitOnSuccess(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx tontine.Store) error {
		m := tontine.Member{Name: "Alice", EnrolledOn: tontine.NewDate(2025, time.January, 1)}
		if err := tx.CreateMember(ctx, &m); err != nil {
			return err
		}
		tn := tontine.Tontine{
			Kind:               tontine.KindPresence,
			ContributionAmount: tontine.MustDecimal("10000"),
			StartDate:          tontine.NewDate(2025, time.January, 1),
		}
		if err := tx.CreateTontine(ctx, &tn); err != nil {
			return err
		}
		return tx.CreateMembership(ctx, tontine.Membership{
			MemberID: m.ID, TontineID: tn.ID, Parts: 1,
		})
	})
	require.NoError(t, err)

	members, err := s.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)

	memberships, err := s.ListMembershipsByMember(ctx, members[0].ID)
	require.NoError(t, err)
	assert.Len(t, memberships, 1)
}

// =============================================================================
// ENGINES ON SQLITE
// =============================================================================

func TestEngines_RunAgainstSQLite(t *testing.T) {
	// The engines are exercised in depth against the memory store; this
	// verifies the production store satisfies the same contract.

	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice", "")
	bob := seedMember(t, s, "Bob", "")
	tn := seedTontine(t, s)

	enrollment := &tontine.EnrollmentEngine{Store: s}
	_, err := enrollment.Enroll(ctx, alice.ID, tn.ID, 1)
	require.NoError(t, err)
	_, err = enrollment.Enroll(ctx, bob.ID, tn.ID, 1)
	require.NoError(t, err)

	sess := tontine.Session{TontineID: tn.ID, Date: tontine.NewDate(2025, time.March, 10)}
	require.NoError(t, s.CreateSession(ctx, &sess))

	sessions := &tontine.SessionEngine{Store: s}
	result, err := sessions.RecordMeeting(ctx, sess.ID, []tontine.MeetingRecord{
		{MemberID: alice.ID, Present: true, AmountPaid: tontine.MustDecimal("10000")},
		{MemberID: bob.ID, Present: false},
	}, tontine.MustDecimal("0"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ContributionsCreated)
	assert.Equal(t, 1, result.PenaltiesCreated)

	_, err = sessions.CloseSession(ctx, sess.ID)
	require.NoError(t, err)

	reports := &tontine.AggregationEngine{Store: s}
	caisse, err := reports.CashPosition(ctx)
	require.NoError(t, err)
	assert.True(t, caisse.Equal(tontine.MustDecimal("10000")), "caisse = %s", caisse)
}
