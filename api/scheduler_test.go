package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tontine-engine/store/sqlite"
	"github.com/warp/tontine-engine/tontine"
)

func TestReclassifyScheduler_SweepMarksOverdue(t *testing.T) {
	// GIVEN: An active credit whose due date is in the past
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	m := tontine.Member{Name: "Alice", EnrolledOn: tontine.NewDate(2024, time.January, 1)}
	require.NoError(t, store.CreateMember(ctx, &m))

	credits := &tontine.CreditEngine{Store: store}
	credit, err := credits.RequestCredit(ctx, tontine.CreditRequest{
		MemberID:    m.ID,
		Principal:   tontine.MustDecimal("10000"),
		Rate:        tontine.MustDecimal("10"),
		RequestedOn: tontine.NewDate(2024, time.January, 1),
		DueOn:       tontine.NewDate(2024, time.February, 1),
	})
	require.NoError(t, err)

	// WHEN: The scheduler runs a sweep
	scheduler := NewReclassifyScheduler(store)
	scheduler.RunNow()

	// THEN: The credit is overdue
	got, err := store.GetCredit(ctx, credit.ID)
	require.NoError(t, err)
	assert.Equal(t, tontine.CreditOverdue, got.Status)
}

func TestReclassifyScheduler_DisabledDoesNotStart(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	scheduler := NewReclassifyScheduler(store)
	scheduler.Enabled = false
	scheduler.Start()
	scheduler.Stop() // no ticker was created; must not panic
}
