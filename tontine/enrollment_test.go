package tontine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tontine-engine/tontine"
)

func TestEnroll_PresenceForcesOnePart(t *testing.T) {
	// GIVEN: A presence tontine
	// WHEN: A member enrolls asking for 5 parts
	// THEN: The membership is created with exactly 1 part

	s := newTestStore(t)
	m := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")

	engine := &tontine.EnrollmentEngine{Store: s}
	parts, err := engine.Enroll(context.Background(), m.ID, tn.ID, 5)

	require.NoError(t, err)
	assert.Equal(t, 1, parts)

	ms, err := s.GetMembership(context.Background(), m.ID, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ms.Parts)
}

func TestEnroll_OptionalKeepsRequestedParts(t *testing.T) {
	s := newTestStore(t)
	m := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")

	engine := &tontine.EnrollmentEngine{Store: s}
	parts, err := engine.Enroll(context.Background(), m.ID, tn.ID, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, parts)
}

func TestEnroll_OptionalRejectsZeroParts(t *testing.T) {
	s := newTestStore(t)
	m := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")

	engine := &tontine.EnrollmentEngine{Store: s}
	_, err := engine.Enroll(context.Background(), m.ID, tn.ID, 0)

	assert.True(t, tontine.IsInvalidArgument(err), "got %v", err)
}

func TestEnroll_DuplicateRejected(t *testing.T) {
	// GIVEN: Alice is already enrolled
	// WHEN: She enrolls again in the same tontine
	// THEN: Conflict, and the original parts are untouched

	s := newTestStore(t)
	m := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")

	engine := &tontine.EnrollmentEngine{Store: s}
	_, err := engine.Enroll(context.Background(), m.ID, tn.ID, 2)
	require.NoError(t, err)

	_, err = engine.Enroll(context.Background(), m.ID, tn.ID, 4)
	assert.True(t, tontine.IsConflict(err), "got %v", err)

	ms, err := s.GetMembership(context.Background(), m.ID, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ms.Parts)
}

func TestEnroll_MissingMemberOrTontine(t *testing.T) {
	s := newTestStore(t)
	m := seedMember(t, s, "Alice")
	tn := seedTontine(t, s, tontine.KindPresence, "10000")

	engine := &tontine.EnrollmentEngine{Store: s}

	_, err := engine.Enroll(context.Background(), 999, tn.ID, 1)
	assert.True(t, tontine.IsNotFound(err), "missing member: got %v", err)

	_, err = engine.Enroll(context.Background(), m.ID, 999, 1)
	assert.True(t, tontine.IsNotFound(err), "missing tontine: got %v", err)
}

func TestRoster_ExpectedContributionScalesWithParts(t *testing.T) {
	// GIVEN: An optional tontine at 10000 per part with members at 1 and 3 parts
	// WHEN: Building the roster
	// THEN: Expected contributions are 10000 and 30000

	s := newTestStore(t)
	alice := seedMember(t, s, "Alice")
	bob := seedMember(t, s, "Bob")
	tn := seedTontine(t, s, tontine.KindOptional, "10000")
	enrollMember(t, s, alice.ID, tn.ID, 1)
	enrollMember(t, s, bob.ID, tn.ID, 3)

	engine := &tontine.EnrollmentEngine{Store: s}
	roster, err := engine.Roster(context.Background(), tn.ID)
	require.NoError(t, err)
	require.Len(t, roster, 2)

	byID := make(map[int64]tontine.RosterEntry)
	for _, e := range roster {
		byID[e.Member.ID] = e
	}
	assert.True(t, byID[alice.ID].ExpectedContribution.Equal(dec("10000")))
	assert.True(t, byID[bob.ID].ExpectedContribution.Equal(dec("30000")))
}

func TestParticipations_ListsAllTontines(t *testing.T) {
	s := newTestStore(t)
	m := seedMember(t, s, "Alice")
	t1 := seedTontine(t, s, tontine.KindPresence, "5000")
	t2 := seedTontine(t, s, tontine.KindOptional, "10000")
	enrollMember(t, s, m.ID, t1.ID, 1)
	enrollMember(t, s, m.ID, t2.ID, 2)

	engine := &tontine.EnrollmentEngine{Store: s}
	parts, err := engine.Participations(context.Background(), m.ID)
	require.NoError(t, err)
	require.Len(t, parts, 2)
}

func TestMembership_ExpectedContribution(t *testing.T) {
	tn := tontine.Tontine{ContributionAmount: dec("2500.50")}
	ms := tontine.Membership{Parts: 4}
	assert.True(t, ms.ExpectedContribution(tn).Equal(dec("10002")),
		"got %s", ms.ExpectedContribution(tn))
}
