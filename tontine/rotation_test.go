package tontine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tontine-engine/tontine"
)

func TestCreateTour_AutoNumbering(t *testing.T) {
	// GIVEN: A tontine with two enrolled members
	// WHEN: Awarding tours without explicit numbers
	// THEN: Numbers run 1, 2 in award order

	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 1)

	engine := &tontine.RotationEngine{Store: s}

	t1, err := engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: tn.ID, MemberID: alice.ID,
		Date: date(2025, time.March, 10), Amount: dec("20000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, t1.Number)

	t2, err := engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: tn.ID, MemberID: bob.ID,
		Date: date(2025, time.April, 10), Amount: dec("20000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, t2.Number)
}

func TestCreateTour_OnePerMemberPerCycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)

	engine := &tontine.RotationEngine{Store: s}
	req := tontine.TourRequest{
		TontineID: tn.ID, MemberID: alice.ID,
		Date: date(2025, time.March, 10), Amount: dec("20000"),
	}

	_, err := engine.CreateTour(ctx, req)
	require.NoError(t, err)

	_, err = engine.CreateTour(ctx, req)
	assert.True(t, tontine.IsConflict(err), "got %v", err)
}

func TestCreateTour_SameMemberDifferentTontines(t *testing.T) {
	// One tour per member is scoped per tontine, not global.
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	t1 := seedTontine(t, s, tontine.KindPresence, "10000")
	t2 := seedTontine(t, s, tontine.KindPresence, "5000")
	enrollMember(t, s, alice.ID, t1.ID, 1)
	enrollMember(t, s, alice.ID, t2.ID, 1)

	engine := &tontine.RotationEngine{Store: s}
	_, err := engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: t1.ID, MemberID: alice.ID,
		Date: date(2025, time.March, 10), Amount: dec("20000"),
	})
	require.NoError(t, err)

	_, err = engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: t2.ID, MemberID: alice.ID,
		Date: date(2025, time.March, 17), Amount: dec("10000"),
	})
	assert.NoError(t, err)
}

func TestCreateTour_DuplicateNumberRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 1)

	engine := &tontine.RotationEngine{Store: s}
	_, err := engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: tn.ID, MemberID: alice.ID, Number: 3,
		Date: date(2025, time.March, 10), Amount: dec("20000"),
	})
	require.NoError(t, err)

	_, err = engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: tn.ID, MemberID: bob.ID, Number: 3,
		Date: date(2025, time.April, 10), Amount: dec("20000"),
	})
	assert.True(t, tontine.IsConflict(err), "got %v", err)
}

func TestCreateTour_RequiresEnrollment(t *testing.T) {
	// GIVEN: A member who exists but is not enrolled
	// WHEN: Awarding them a tour
	// THEN: InvalidArgument, not NotFound

	s := newTestStore(t)
	alice := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")

	engine := &tontine.RotationEngine{Store: s}
	_, err := engine.CreateTour(context.Background(), tontine.TourRequest{
		TontineID: tn.ID, MemberID: alice.ID,
		Date: date(2025, time.March, 10), Amount: dec("20000"),
	})
	assert.True(t, tontine.IsInvalidArgument(err), "got %v", err)
}

func TestCreateTour_Validation(t *testing.T) {
	s := newTestStore(t)
	alice := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)

	engine := &tontine.RotationEngine{Store: s}

	_, err := engine.CreateTour(context.Background(), tontine.TourRequest{
		TontineID: tn.ID, MemberID: alice.ID,
		Date: date(2025, time.March, 10), Amount: dec("0"),
	})
	assert.True(t, tontine.IsInvalidArgument(err), "zero amount: got %v", err)

	_, err = engine.CreateTour(context.Background(), tontine.TourRequest{
		TontineID: tn.ID, MemberID: 999,
		Date: date(2025, time.March, 10), Amount: dec("20000"),
	})
	assert.True(t, tontine.IsNotFound(err), "missing member: got %v", err)
}

func TestNextTourNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)

	engine := &tontine.RotationEngine{Store: s}

	next, err := engine.NextTourNumber(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next, "empty tontine starts at 1")

	_, err = engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: tn.ID, MemberID: alice.ID, Number: 4,
		Date: date(2025, time.March, 10), Amount: dec("20000"),
	})
	require.NoError(t, err)

	next, err = engine.NextTourNumber(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, next, "next is 1 + max, even across gaps")
}

func TestEligibleBeneficiaries_ShrinksAsToursAwarded(t *testing.T) {
	// GIVEN: Three enrolled members
	// WHEN: One receives a tour
	// THEN: Only the other two remain eligible

	s := newTestStore(t)
	ctx := context.Background()
	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	chloe := seedMember(t, s, "Chloe")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 1)
	enrollMember(t, s, chloe.ID, tn.ID, 1)

	engine := &tontine.RotationEngine{Store: s}

	eligible, err := engine.EligibleBeneficiaries(ctx, tn.ID)
	require.NoError(t, err)
	assert.Len(t, eligible, 3)

	_, err = engine.CreateTour(ctx, tontine.TourRequest{
		TontineID: tn.ID, MemberID: bob.ID,
		Date: date(2025, time.March, 10), Amount: dec("30000"),
	})
	require.NoError(t, err)

	eligible, err = engine.EligibleBeneficiaries(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	for _, m := range eligible {
		assert.NotEqual(t, bob.ID, m.ID)
	}
}
