package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stadion/internal/models"
)

const testDate = "2026-09-10"

func TestEnsureSlots_Idempotent(t *testing.T) {
	database := newTestDB(t, 2)
	ctx := context.Background()

	require.NoError(t, database.EnsureSlots(ctx, testDate, testHours))

	// Mutate one row, then ensure again: existing state must survive.
	_, err := database.ReserveSlot(ctx, ReserveRequest{
		UserID: 1, FullName: "Ali Valiyev", Phone: "+998901112233",
		Date: testDate, Hour: "09:00", Hours: testHours,
	})
	require.NoError(t, err)
	_, err = database.ToggleBlock(ctx, testDate, "10:00")
	require.NoError(t, err)

	require.NoError(t, database.EnsureSlots(ctx, testDate, testHours))

	slots, err := database.ListSlots(ctx, testDate, testHours)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, 1, slots[0].Remaining, "remaining must survive re-ensure")
	assert.True(t, slots[1].IsBlocked, "block state must survive re-ensure")
	assert.Equal(t, 2, slots[2].Remaining)
}

func TestListSlots_MaterializesAndOrders(t *testing.T) {
	database := newTestDB(t, 2)
	ctx := context.Background()

	slots, err := database.ListSlots(ctx, testDate, testHours)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	for i, s := range slots {
		assert.Equal(t, testHours[i], s.Hour)
		assert.Equal(t, testDate, s.Date)
		assert.Equal(t, 2, s.Capacity)
		assert.Equal(t, 2, s.Remaining)
		assert.False(t, s.IsBlocked)
	}
}

func TestReserveSlot_ExhaustsCapacity(t *testing.T) {
	database := newTestDB(t, 2)
	ctx := context.Background()

	req := ReserveRequest{
		UserID: 1, FullName: "Ali Valiyev", Phone: "+998901112233",
		Date: testDate, Hour: "09:00", Hours: testHours,
	}

	_, err := database.ReserveSlot(ctx, req)
	require.NoError(t, err)
	req.UserID = 2
	_, err = database.ReserveSlot(ctx, req)
	require.NoError(t, err)

	req.UserID = 3
	_, err = database.ReserveSlot(ctx, req)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	slot, err := database.GetSlot(ctx, testDate, "09:00")
	require.NoError(t, err)
	assert.Equal(t, 0, slot.Remaining)

	// Failed attempt must not leave a booking behind.
	bookings, err := database.ListBookingsByDate(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
}

func TestReserveSlot_BlockedSlot(t *testing.T) {
	database := newTestDB(t, 2)
	ctx := context.Background()

	require.NoError(t, database.EnsureSlots(ctx, testDate, testHours))
	blocked, err := database.ToggleBlock(ctx, testDate, "09:00")
	require.NoError(t, err)
	require.True(t, blocked)

	_, err = database.ReserveSlot(ctx, ReserveRequest{
		UserID: 1, FullName: "Ali Valiyev", Phone: "+998901112233",
		Date: testDate, Hour: "09:00", Hours: testHours,
	})
	assert.ErrorIs(t, err, ErrSlotUnavailable, "blocked slot is never decremented")

	slot, err := database.GetSlot(ctx, testDate, "09:00")
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Remaining)
}

func TestToggleBlock(t *testing.T) {
	database := newTestDB(t, 2)
	ctx := context.Background()

	_, err := database.ToggleBlock(ctx, testDate, "09:00")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	require.NoError(t, database.EnsureSlots(ctx, testDate, testHours))

	blocked, err := database.ToggleBlock(ctx, testDate, "09:00")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = database.ToggleBlock(ctx, testDate, "09:00")
	require.NoError(t, err)
	assert.False(t, blocked, "second toggle restores bookability")

	_, err = database.ReserveSlot(ctx, ReserveRequest{
		UserID: 1, FullName: "Ali Valiyev", Phone: "+998901112233",
		Date: testDate, Hour: "09:00", Hours: testHours,
	})
	assert.NoError(t, err)
}

func TestReleaseClampsToCapacity(t *testing.T) {
	database := newTestDB(t, 2)
	ctx := context.Background()

	b, err := database.ReserveSlot(ctx, ReserveRequest{
		UserID: 1, FullName: "Ali Valiyev", Phone: "+998901112233",
		Date: testDate, Hour: "09:00", Hours: testHours,
	})
	require.NoError(t, err)

	require.NoError(t, database.CancelBooking(ctx, b.ID, models.CanceledByUser))

	slot, err := database.GetSlot(ctx, testDate, "09:00")
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Remaining, "cancel restores the unit")

	// Force another release through a raw transaction: remaining must not
	// exceed the recorded capacity.
	tx, err := database.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, releaseUnitTx(ctx, tx, testDate, "09:00"))
	require.NoError(t, tx.Commit())

	slot, err = database.GetSlot(ctx, testDate, "09:00")
	require.NoError(t, err)
	assert.Equal(t, 2, slot.Remaining)
}
