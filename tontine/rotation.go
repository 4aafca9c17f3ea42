/*
rotation.go - Payout rotation and eligibility engine

PURPOSE:
  Decides who can still receive a payout in a tontine cycle and assigns
  sequence numbers. A member receives at most one tour per tontine; once
  served they are ineligible for the remainder of the cycle. Numbers are
  per-tontine, starting at 1, gapless by convention; the store's
  (tontine, number) and (tontine, member) uniqueness constraints turn any
  race into a Conflict instead of a silent duplicate.
*/
package tontine

import (
	"context"

	"github.com/shopspring/decimal"
)

// TourRequest is the input to CreateTour. Number 0 means auto-assign the
// next number in the tontine's sequence.
type TourRequest struct {
	TontineID int64
	MemberID  int64
	Number    int
	Date      Date
	Amount    decimal.Decimal
	SessionID *int64
}

// RotationEngine assigns payouts.
type RotationEngine struct {
	Store TxStore
}

// NextTourNumber returns 1 + max(existing numbers) for the tontine, or 1
// when no tour exists yet.
func (e *RotationEngine) NextTourNumber(ctx context.Context, tontineID int64) (int, error) {
	if _, err := e.Store.GetTontine(ctx, tontineID); err != nil {
		return 0, err
	}
	tours, err := e.Store.ListTours(ctx, TourFilter{TontineID: &tontineID})
	if err != nil {
		return 0, err
	}
	next := 1
	for _, t := range tours {
		if t.Number >= next {
			next = t.Number + 1
		}
	}
	return next, nil
}

// EligibleBeneficiaries returns the enrolled members who have never been
// the beneficiary of a tour in this tontine.
func (e *RotationEngine) EligibleBeneficiaries(ctx context.Context, tontineID int64) ([]Member, error) {
	if _, err := e.Store.GetTontine(ctx, tontineID); err != nil {
		return nil, err
	}
	memberships, err := e.Store.ListMembershipsByTontine(ctx, tontineID)
	if err != nil {
		return nil, err
	}
	tours, err := e.Store.ListTours(ctx, TourFilter{TontineID: &tontineID})
	if err != nil {
		return nil, err
	}

	served := make(map[int64]bool, len(tours))
	for _, t := range tours {
		served[t.MemberID] = true
	}

	eligible := make([]Member, 0, len(memberships))
	for _, ms := range memberships {
		if served[ms.MemberID] {
			continue
		}
		m, err := e.Store.GetMember(ctx, ms.MemberID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		eligible = append(eligible, m)
	}
	return eligible, nil
}

// CreateTour awards a payout.
//
//   - NotFound when member or tontine is missing.
//   - InvalidArgument when the member is not enrolled or amount <= 0.
//   - Conflict when the member already received a tour in this tontine,
//     or the sequence number is already taken.
func (e *RotationEngine) CreateTour(ctx context.Context, req TourRequest) (Tour, error) {
	if !req.Amount.IsPositive() {
		return Tour{}, invalidArg("amount", "must be > 0")
	}

	var tour Tour
	err := e.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetMember(ctx, req.MemberID); err != nil {
			return err
		}
		if _, err := s.GetTontine(ctx, req.TontineID); err != nil {
			return err
		}
		if _, err := s.GetMembership(ctx, req.MemberID, req.TontineID); err != nil {
			if IsNotFound(err) {
				return invalidArg("memberID", "member is not enrolled in this tontine")
			}
			return err
		}

		existing, err := s.ListTours(ctx, TourFilter{TontineID: &req.TontineID, MemberID: &req.MemberID})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return conflictf("member %d already received a tour in tontine %d", req.MemberID, req.TontineID)
		}

		number := req.Number
		if number == 0 {
			tours, err := s.ListTours(ctx, TourFilter{TontineID: &req.TontineID})
			if err != nil {
				return err
			}
			number = 1
			for _, t := range tours {
				if t.Number >= number {
					number = t.Number + 1
				}
			}
		}

		tour = Tour{
			TontineID: req.TontineID,
			MemberID:  req.MemberID,
			Number:    number,
			Date:      req.Date,
			Amount:    req.Amount,
			SessionID: req.SessionID,
		}
		return s.CreateTour(ctx, &tour)
	})
	if err != nil {
		return Tour{}, err
	}
	return tour, nil
}
