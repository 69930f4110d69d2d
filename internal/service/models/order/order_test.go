package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(status Status) *Order {
	return &Order{
		Number:     "1202509010001",
		BusinessID: 1,
		Status:     status,
		Type:       TypePickup,
		CreatedAt:  time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestForwardTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusReceived, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusSent, true},
		{StatusSent, StatusPaid, true},
		{StatusSent, StatusClosed, true},
		{StatusPaid, StatusClosed, true},
		{StatusReceived, StatusReady, false},
		{StatusReceived, StatusSent, false},
		{StatusPreparing, StatusSent, false},
		{StatusReady, StatusPaid, false},
		{StatusClosed, StatusPaid, false},
		{StatusCancelled, StatusPreparing, false},
		{StatusPaid, StatusSent, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			o := newTestOrder(tc.from)
			err := o.ApplyTransition(tc.to, time.Now())
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, o.Status)
			} else {
				var invalid *InvalidTransitionError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tc.from, invalid.From)
				assert.Equal(t, tc.to, invalid.To)
				assert.Equal(t, tc.from, o.Status)
			}
		})
	}
}

func TestApplyTransitionSameStatusIsNoop(t *testing.T) {
	o := newTestOrder(StatusPreparing)
	before := *o

	require.NoError(t, o.ApplyTransition(StatusPreparing, time.Now()))
	assert.Equal(t, before, *o)
}

func TestApplyTransitionStampsTimestampsOnce(t *testing.T) {
	o := newTestOrder(StatusReceived)
	accepted := o.CreatedAt.Add(90 * time.Second)

	require.NoError(t, o.ApplyTransition(StatusPreparing, accepted))
	require.NotNil(t, o.AcceptedAt)
	assert.Equal(t, accepted, *o.AcceptedAt)
	require.NotNil(t, o.ResponseTimeSeconds)
	assert.Equal(t, int64(90), *o.ResponseTimeSeconds)

	ready := accepted.Add(10 * time.Minute)
	require.NoError(t, o.ApplyTransition(StatusReady, ready))
	require.NotNil(t, o.PreparationTimeSeconds)
	assert.Equal(t, int64(600), *o.PreparationTimeSeconds)
	require.NotNil(t, o.ReadyAt)
}

func TestRevertClearsEntryTimestamps(t *testing.T) {
	o := newTestOrder(StatusReceived)
	now := o.CreatedAt.Add(time.Minute)

	require.NoError(t, o.ApplyTransition(StatusPreparing, now))
	require.NotNil(t, o.AcceptedAt)

	prev, err := o.RevertToPrevious(now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, prev)
	assert.Equal(t, StatusReceived, o.Status)
	assert.Nil(t, o.AcceptedAt)
	assert.Nil(t, o.PreparingAt)
	assert.Nil(t, o.ResponseTimeSeconds)
}

func TestRevertThenReenterStampsFreshValues(t *testing.T) {
	o := newTestOrder(StatusReceived)
	first := o.CreatedAt.Add(time.Minute)

	require.NoError(t, o.ApplyTransition(StatusPreparing, first))
	_, err := o.RevertToPrevious(first.Add(time.Minute))
	require.NoError(t, err)

	second := o.CreatedAt.Add(5 * time.Minute)
	require.NoError(t, o.ApplyTransition(StatusPreparing, second))
	require.NotNil(t, o.AcceptedAt)
	assert.Equal(t, second, *o.AcceptedAt)
	assert.Equal(t, int64(300), *o.ResponseTimeSeconds)
}

func TestRevertFromReceivedFails(t *testing.T) {
	o := newTestOrder(StatusReceived)

	_, err := o.RevertToPrevious(time.Now())
	assert.ErrorIs(t, err, ErrNoPreviousStatus)
}

func TestRevertChain(t *testing.T) {
	o := newTestOrder(StatusReceived)
	now := o.CreatedAt

	for _, s := range []Status{StatusPreparing, StatusReady, StatusSent, StatusPaid} {
		now = now.Add(time.Minute)
		require.NoError(t, o.ApplyTransition(s, now))
	}

	expected := []Status{StatusSent, StatusReady, StatusPreparing, StatusReceived}
	for _, want := range expected {
		prev, err := o.RevertToPrevious(now)
		require.NoError(t, err)
		assert.Equal(t, want, prev)
	}

	assert.Nil(t, o.SentAt)
	assert.Nil(t, o.PaidAt)
	assert.Nil(t, o.ReadyAt)
	assert.Nil(t, o.AcceptedAt)
}

func TestCancel(t *testing.T) {
	for _, s := range []Status{StatusReceived, StatusPreparing, StatusReady, StatusSent} {
		o := newTestOrder(s)
		require.NoError(t, o.Cancel(time.Now()), "cancel from %s", s)
		assert.Equal(t, StatusCancelled, o.Status)
	}

	for _, s := range []Status{StatusPaid, StatusClosed, StatusCancelled} {
		o := newTestOrder(s)
		err := o.Cancel(time.Now())
		var invalid *InvalidTransitionError
		assert.ErrorAs(t, err, &invalid, "cancel from %s must fail", s)
		assert.Equal(t, s, o.Status)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPaid.IsTerminal())

	for _, s := range []Status{StatusPreparing, StatusReady, StatusSent, StatusPaid} {
		o := newTestOrder(StatusCancelled)
		err := o.ApplyTransition(s, time.Now())
		assert.Error(t, err, "transition out of cancelled to %s must fail", s)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("preparing")
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, s)

	_, err = ParseStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
