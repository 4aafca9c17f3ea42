/*
session.go - Session lifecycle engine

PURPOSE:
  Records a meeting's outcomes and derives its totals. RecordMeeting is
  the single operation that issues contributions and penalties; it only
  accepts a Scheduled session and moves it to Held, so a meeting can never
  be recorded (and penalized) twice. CloseSession finalizes a Held session
  and computes totals without creating anything, which makes it safe to
  retry.

STATE MACHINE:
  Scheduled --RecordMeeting--> Held --CloseSession--> Closed
  Scheduled/Held --CancelSession--> Cancelled

PENALTY POLICY:
  Absences at a presence-tontine meeting are penalized at the amount the
  caller supplies; a zero amount selects DefaultAbsencePenalty. Optional
  tontines never penalize absence.

SEE ALSO:
  - aggregate.go: SessionReport denormalizes the recorded outcomes
*/
package tontine

import (
	"context"

	"github.com/shopspring/decimal"
)

// DefaultAbsencePenalty is the fallback charge for an absence at a
// presence-tontine meeting, in currency units.
var DefaultAbsencePenalty = decimal.NewFromInt(5000)

// AbsenceReason is the reason recorded on absence penalties.
const AbsenceReason = "Absence"

// MeetingRecord is one attendance-sheet line: a member, whether they were
// present, and what they paid.
type MeetingRecord struct {
	MemberID   int64
	Present    bool
	AmountPaid decimal.Decimal
}

// MeetingResult summarizes what RecordMeeting created.
type MeetingResult struct {
	SessionID            int64
	Status               SessionStatus
	ContributionsCreated int
	PenaltiesCreated     int
	TotalContributions   decimal.Decimal
	TotalPenalties       decimal.Decimal
	Penalties            []Penalty
}

// CloseResult summarizes a finalized session.
type CloseResult struct {
	SessionID          int64
	Status             SessionStatus
	TotalContributions decimal.Decimal
	TotalPenalties     decimal.Decimal
	Penalties          []Penalty
}

// SessionEngine drives the session lifecycle.
type SessionEngine struct {
	Store TxStore
}

// RecordMeeting records the attendance sheet for a Scheduled session:
// contributions for present members who paid, absence penalties for absent
// members of presence tontines, status to Held. All writes land in one
// transaction.
//
//   - NotFound when the session or its tontine is missing.
//   - Conflict when the session is not Scheduled (at-most-once recording).
//   - InvalidArgument when any paid amount is negative.
//   - Unknown member references are skipped, not fatal.
//
// absencePenalty of zero selects DefaultAbsencePenalty.
func (e *SessionEngine) RecordMeeting(ctx context.Context, sessionID int64, records []MeetingRecord, absencePenalty decimal.Decimal) (MeetingResult, error) {
	if absencePenalty.IsNegative() {
		return MeetingResult{}, invalidArg("absencePenalty", "must not be negative")
	}
	if absencePenalty.IsZero() {
		absencePenalty = DefaultAbsencePenalty
	}

	var result MeetingResult
	err := e.Store.WithTx(ctx, func(s Store) error {
		sess, err := s.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != SessionScheduled {
			return conflictf("session %d is %s, expected %s", sessionID, sess.Status, SessionScheduled)
		}
		t, err := s.GetTontine(ctx, sess.TontineID)
		if err != nil {
			return err
		}

		for _, rec := range records {
			if rec.AmountPaid.IsNegative() {
				return invalidArg("amountPaid", "must not be negative")
			}
			if _, err := s.GetMember(ctx, rec.MemberID); err != nil {
				if IsNotFound(err) {
					continue
				}
				return err
			}

			switch {
			case rec.Present && rec.AmountPaid.IsPositive():
				c := Contribution{
					MemberID:  rec.MemberID,
					SessionID: sessionID,
					Amount:    rec.AmountPaid,
					PaidOn:    sess.Date,
				}
				if err := s.CreateContribution(ctx, &c); err != nil {
					return err
				}
				result.ContributionsCreated++

			case !rec.Present && t.Kind == KindPresence:
				p := Penalty{
					MemberID:  rec.MemberID,
					SessionID: &sessionID,
					TontineID: &sess.TontineID,
					Amount:    absencePenalty,
					Reason:    AbsenceReason,
					Date:      sess.Date,
					Status:    PenaltyUnpaid,
					Kind:      PenaltyAbsence,
				}
				if err := s.CreatePenalty(ctx, &p); err != nil {
					return err
				}
				result.PenaltiesCreated++
				result.Penalties = append(result.Penalties, p)
			}
		}

		held := SessionHeld
		if _, err := s.UpdateSession(ctx, sessionID, SessionUpdate{Status: &held}); err != nil {
			return err
		}

		result.SessionID = sessionID
		result.Status = held
		result.TotalContributions, result.TotalPenalties, err = sessionTotals(ctx, s, sessionID)
		return err
	})
	if err != nil {
		return MeetingResult{}, err
	}
	return result, nil
}

// CloseSession finalizes a Held session and returns its totals. It creates
// no contributions or penalties; those are issued exactly once by
// RecordMeeting.
func (e *SessionEngine) CloseSession(ctx context.Context, sessionID int64) (CloseResult, error) {
	var result CloseResult
	err := e.Store.WithTx(ctx, func(s Store) error {
		sess, err := s.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if _, err := s.GetTontine(ctx, sess.TontineID); err != nil {
			return err
		}
		if sess.Status != SessionHeld {
			return conflictf("session %d is %s, expected %s", sessionID, sess.Status, SessionHeld)
		}

		closed := SessionClosed
		if _, err := s.UpdateSession(ctx, sessionID, SessionUpdate{Status: &closed}); err != nil {
			return err
		}

		penalties, err := s.ListPenalties(ctx, PenaltyFilter{SessionID: &sessionID})
		if err != nil {
			return err
		}

		result.SessionID = sessionID
		result.Status = closed
		result.Penalties = penalties
		result.TotalContributions, result.TotalPenalties, err = sessionTotals(ctx, s, sessionID)
		return err
	})
	if err != nil {
		return CloseResult{}, err
	}
	return result, nil
}

// CancelSession moves a Scheduled or Held session to Cancelled.
func (e *SessionEngine) CancelSession(ctx context.Context, sessionID int64) error {
	return e.Store.WithTx(ctx, func(s Store) error {
		sess, err := s.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != SessionScheduled && sess.Status != SessionHeld {
			return conflictf("session %d is %s and cannot be cancelled", sessionID, sess.Status)
		}
		cancelled := SessionCancelled
		_, err = s.UpdateSession(ctx, sessionID, SessionUpdate{Status: &cancelled})
		return err
	})
}

// BulkContributions inserts several contributions atomically, validating
// each against its session and member. Either every row lands or none.
func (e *SessionEngine) BulkContributions(ctx context.Context, contributions []Contribution) ([]Contribution, error) {
	created := make([]Contribution, 0, len(contributions))
	err := e.Store.WithTx(ctx, func(s Store) error {
		for _, c := range contributions {
			if !c.Amount.IsPositive() {
				return invalidArg("amount", "must be > 0")
			}
			if _, err := s.GetMember(ctx, c.MemberID); err != nil {
				return err
			}
			sess, err := s.GetSession(ctx, c.SessionID)
			if err != nil {
				return err
			}
			if c.PaidOn.IsZero() {
				c.PaidOn = sess.Date
			}
			if err := s.CreateContribution(ctx, &c); err != nil {
				return err
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Attendance returns the attendance sheet for a session: every member of
// its tontine with parts and expected contribution.
func (e *SessionEngine) Attendance(ctx context.Context, sessionID int64) ([]RosterEntry, error) {
	sess, err := e.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	roster := &EnrollmentEngine{Store: e.Store}
	return roster.Roster(ctx, sess.TontineID)
}

// sessionTotals folds the session's recorded contributions and penalties.
func sessionTotals(ctx context.Context, s Store, sessionID int64) (contributions, penalties decimal.Decimal, err error) {
	cs, err := s.ListContributions(ctx, ContributionFilter{SessionID: &sessionID})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	ps, err := s.ListPenalties(ctx, PenaltyFilter{SessionID: &sessionID})
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	contributions = decimal.Zero
	for _, c := range cs {
		contributions = contributions.Add(c.Amount)
	}
	penalties = decimal.Zero
	for _, p := range ps {
		if p.Status != PenaltyCancelled {
			penalties = penalties.Add(p.Amount)
		}
	}
	return contributions, penalties, nil
}
