/*
project.go - Project funding engine

PURPOSE:
  Member-proposed initiatives (FIAC) financed from a tontine's pool. A
  project carries a budget; funds are allocated to it over time, never
  beyond the budget, and only while it is in progress. In-progress
  allocations reduce the cash position (see aggregate.go); completing a
  project releases nothing, it simply freezes the allocation.
*/
package tontine

import (
	"context"

	"github.com/shopspring/decimal"
)

// ProjectRequest is the input to CreateProject.
type ProjectRequest struct {
	TontineID     int64
	Name          string
	Description   string
	Budget        decimal.Decimal
	Allocated     decimal.Decimal
	StartDate     Date
	EndDate       *Date
	ResponsibleID *int64
	Participants  []int64
}

// ProjectEngine manages project funding.
type ProjectEngine struct {
	Store TxStore
}

// CreateProject registers a project against its financing tontine.
func (e *ProjectEngine) CreateProject(ctx context.Context, req ProjectRequest) (Project, error) {
	if !req.Budget.IsPositive() {
		return Project{}, invalidArg("budget", "must be > 0")
	}
	if req.Allocated.IsNegative() {
		return Project{}, invalidArg("allocated", "must not be negative")
	}
	if req.Allocated.GreaterThan(req.Budget) {
		return Project{}, invalidArg("allocated", "must not exceed budget")
	}

	var project Project
	err := e.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetTontine(ctx, req.TontineID); err != nil {
			return err
		}
		if req.ResponsibleID != nil {
			if _, err := s.GetMember(ctx, *req.ResponsibleID); err != nil {
				return err
			}
		}

		project = Project{
			TontineID:     req.TontineID,
			Name:          req.Name,
			Description:   req.Description,
			Budget:        req.Budget,
			Allocated:     req.Allocated,
			StartDate:     req.StartDate,
			EndDate:       req.EndDate,
			Status:        ProjectInProgress,
			ResponsibleID: req.ResponsibleID,
		}
		if err := s.CreateProject(ctx, &project); err != nil {
			return err
		}

		for _, memberID := range req.Participants {
			if _, err := s.GetMember(ctx, memberID); err != nil {
				return err
			}
			if err := s.AddProjectParticipant(ctx, project.ID, memberID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	return project, nil
}

// AllocateFunds increases a project's allocation.
//
//   - InvalidArgument when amount <= 0 or the allocation would exceed the
//     budget.
//   - Conflict when the project is already completed.
func (e *ProjectEngine) AllocateFunds(ctx context.Context, projectID int64, amount decimal.Decimal) (Project, error) {
	if !amount.IsPositive() {
		return Project{}, invalidArg("amount", "must be > 0")
	}

	var updated Project
	err := e.Store.WithTx(ctx, func(s Store) error {
		p, err := s.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if p.Status != ProjectInProgress {
			return conflictf("project %d is %s and cannot receive allocations", projectID, p.Status)
		}

		allocated := p.Allocated.Add(amount)
		if allocated.GreaterThan(p.Budget) {
			return invalidArg("amount", "allocation would exceed project budget")
		}

		updated, err = s.UpdateProject(ctx, projectID, ProjectUpdate{Allocated: &allocated})
		return err
	})
	if err != nil {
		return Project{}, err
	}
	return updated, nil
}

// CompleteProject moves an in-progress project to Completed.
func (e *ProjectEngine) CompleteProject(ctx context.Context, projectID int64) (Project, error) {
	var updated Project
	err := e.Store.WithTx(ctx, func(s Store) error {
		p, err := s.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if p.Status != ProjectInProgress {
			return conflictf("project %d is already %s", projectID, p.Status)
		}
		completed := ProjectCompleted
		updated, err = s.UpdateProject(ctx, projectID, ProjectUpdate{Status: &completed})
		return err
	})
	if err != nil {
		return Project{}, err
	}
	return updated, nil
}

// AddParticipant enrolls a member as a project participant.
func (e *ProjectEngine) AddParticipant(ctx context.Context, projectID, memberID int64) error {
	return e.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetProject(ctx, projectID); err != nil {
			return err
		}
		if _, err := s.GetMember(ctx, memberID); err != nil {
			return err
		}
		return s.AddProjectParticipant(ctx, projectID, memberID)
	})
}
