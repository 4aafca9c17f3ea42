/*
credit.go - Credit lifecycle engine

PURPOSE:
  Loans from the common pool to members. Interest is fixed at request time:
  the opening balance is principal x (1 + rate/100) and only repayments
  move it, downward, until it reaches exactly zero.

RULES:
  - One outstanding credit per member. A member with an Active or Overdue
    credit cannot request another.
  - Repayment clamps at zero and flips the credit to Repaid; a partial
    repayment never changes status (Overdue stays Overdue).
  - Overdue reclassification is a batch sweep: Active credits past their
    due date become Overdue. It is idempotent and skips bad rows rather
    than failing the batch.
*/
package tontine

import (
	"context"

	"github.com/shopspring/decimal"
)

// CreditRequest is the input to RequestCredit.
type CreditRequest struct {
	MemberID    int64
	Principal   decimal.Decimal
	Rate        decimal.Decimal // percent
	Purpose     string
	RequestedOn Date
	DueOn       Date
}

// CreditEngine drives the credit lifecycle.
type CreditEngine struct {
	Store TxStore
}

var oneHundred = decimal.NewFromInt(100)

// OpeningBalance computes principal x (1 + rate/100).
func OpeningBalance(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Mul(decimal.NewFromInt(1).Add(rate.Div(oneHundred)))
}

// RequestCredit validates and opens a credit.
//
//   - NotFound when the member is missing.
//   - Conflict when the member already holds an Active or Overdue credit.
//   - InvalidArgument when principal <= 0 or rate < 0.
func (e *CreditEngine) RequestCredit(ctx context.Context, req CreditRequest) (Credit, error) {
	if !req.Principal.IsPositive() {
		return Credit{}, invalidArg("principal", "must be > 0")
	}
	if req.Rate.IsNegative() {
		return Credit{}, invalidArg("rate", "must not be negative")
	}

	var credit Credit
	err := e.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetMember(ctx, req.MemberID); err != nil {
			return err
		}

		outstanding, err := s.ListCredits(ctx, CreditFilter{
			MemberID: &req.MemberID,
			Statuses: []CreditStatus{CreditActive, CreditOverdue},
		})
		if err != nil {
			return err
		}
		if len(outstanding) > 0 {
			return conflictf("member %d already has an active credit", req.MemberID)
		}

		credit = Credit{
			MemberID:    req.MemberID,
			Principal:   req.Principal,
			Rate:        req.Rate,
			Balance:     OpeningBalance(req.Principal, req.Rate),
			Purpose:     req.Purpose,
			RequestedOn: req.RequestedOn,
			DueOn:       req.DueOn,
			Status:      CreditActive,
		}
		return s.CreateCredit(ctx, &credit)
	})
	if err != nil {
		return Credit{}, err
	}
	return credit, nil
}

// Repay applies a repayment to a credit. The balance is reduced by
// amountPaid and clamped at zero; at zero the credit becomes Repaid.
// A partial repayment leaves the status untouched, so an Overdue credit
// stays Overdue until fully repaid.
func (e *CreditEngine) Repay(ctx context.Context, creditID int64, amountPaid decimal.Decimal) (Credit, error) {
	if !amountPaid.IsPositive() {
		return Credit{}, invalidArg("amountPaid", "must be > 0")
	}

	var updated Credit
	err := e.Store.WithTx(ctx, func(s Store) error {
		credit, err := s.GetCredit(ctx, creditID)
		if err != nil {
			return err
		}

		balance := credit.Balance.Sub(amountPaid)
		upd := CreditUpdate{}
		if balance.LessThanOrEqual(decimal.Zero) {
			balance = decimal.Zero
			repaid := CreditRepaid
			upd.Status = &repaid
		}
		upd.Balance = &balance

		updated, err = s.UpdateCredit(ctx, creditID, upd)
		return err
	})
	if err != nil {
		return Credit{}, err
	}
	return updated, nil
}

// ReclassifyOverdue moves every Active credit whose due date is before
// asOf to Overdue and returns the count transitioned. Running it twice in
// a row transitions nothing the second time. Individual bad rows are
// skipped, never failing the batch.
func (e *CreditEngine) ReclassifyOverdue(ctx context.Context, asOf Date) (int, error) {
	count := 0
	err := e.Store.WithTx(ctx, func(s Store) error {
		credits, err := s.ListCredits(ctx, CreditFilter{Statuses: []CreditStatus{CreditActive}})
		if err != nil {
			return err
		}

		overdue := CreditOverdue
		for _, c := range credits {
			if !c.DueOn.Before(asOf) {
				continue
			}
			if _, err := s.UpdateCredit(ctx, c.ID, CreditUpdate{Status: &overdue}); err != nil {
				if IsNotFound(err) {
					continue
				}
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
