/*
enrollment.go - Membership enrollment rules

PURPOSE:
  Governs how a member joins a tontine and how many parts (shares) they
  hold. The parts rule is the one invariant the rest of the system leans
  on: presence tontines are strictly one part per member, optional
  tontines are one or more.

SEE ALSO:
  - rotation.go: eligibility derives from memberships
  - session.go: expected contributions derive from parts
*/
package tontine

import (
	"context"

	"github.com/shopspring/decimal"
)

// EnrollmentEngine applies the enrollment rules against the store.
type EnrollmentEngine struct {
	Store TxStore
}

// Enroll registers a member in a tontine and returns the effective parts.
//
// Rules:
//   - Conflict if the (member, tontine) membership already exists.
//   - NotFound if member or tontine is missing.
//   - Presence tontine: parts forced to 1, whatever was requested.
//   - Optional tontine: InvalidArgument when requestedParts < 1.
//
// The membership table's uniqueness constraint backs the conflict check,
// so two concurrent enrollments cannot both land.
func (e *EnrollmentEngine) Enroll(ctx context.Context, memberID, tontineID int64, requestedParts int) (int, error) {
	var parts int
	err := e.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetMember(ctx, memberID); err != nil {
			return err
		}
		t, err := s.GetTontine(ctx, tontineID)
		if err != nil {
			return err
		}

		if _, err := s.GetMembership(ctx, memberID, tontineID); err == nil {
			return conflictf("member %d already enrolled in tontine %d", memberID, tontineID)
		} else if !IsNotFound(err) {
			return err
		}

		parts = requestedParts
		if t.Kind == KindPresence {
			parts = 1
		} else if parts < 1 {
			return invalidArg("parts", "must be >= 1 for an optional tontine")
		}

		return s.CreateMembership(ctx, Membership{
			MemberID:  memberID,
			TontineID: tontineID,
			Parts:     parts,
		})
	})
	if err != nil {
		return 0, err
	}
	return parts, nil
}

// RosterEntry is one tontine member with their participation details.
type RosterEntry struct {
	Member               Member
	Parts                int
	ExpectedContribution decimal.Decimal // parts x contribution amount
}

// MemberParticipation is one tontine a member belongs to, with parts.
type MemberParticipation struct {
	Tontine Tontine
	Parts   int
}

// Roster returns every member of a tontine with their parts and expected
// per-session contribution.
func (e *EnrollmentEngine) Roster(ctx context.Context, tontineID int64) ([]RosterEntry, error) {
	t, err := e.Store.GetTontine(ctx, tontineID)
	if err != nil {
		return nil, err
	}
	memberships, err := e.Store.ListMembershipsByTontine(ctx, tontineID)
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, 0, len(memberships))
	for _, ms := range memberships {
		m, err := e.Store.GetMember(ctx, ms.MemberID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, RosterEntry{
			Member:               m,
			Parts:                ms.Parts,
			ExpectedContribution: ms.ExpectedContribution(t),
		})
	}
	return entries, nil
}

// Participations returns every tontine a member is enrolled in, with parts.
func (e *EnrollmentEngine) Participations(ctx context.Context, memberID int64) ([]MemberParticipation, error) {
	if _, err := e.Store.GetMember(ctx, memberID); err != nil {
		return nil, err
	}
	memberships, err := e.Store.ListMembershipsByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	result := make([]MemberParticipation, 0, len(memberships))
	for _, ms := range memberships {
		t, err := e.Store.GetTontine(ctx, ms.TontineID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		result = append(result, MemberParticipation{Tontine: t, Parts: ms.Parts})
	}
	return result, nil
}
