package orders

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current Status
		next    Status
		wantErr bool
	}{
		{"pending to confirmed", StatusPending, StatusConfirmed, false},
		{"confirmed to shipped", StatusConfirmed, StatusShipped, false},
		{"shipped to delivered", StatusShipped, StatusDelivered, false},
		{"skip ahead pending to shipped", StatusPending, StatusShipped, false},
		{"same status", StatusConfirmed, StatusConfirmed, false},
		{"backward shipped to confirmed", StatusShipped, StatusConfirmed, true},
		{"backward shipped to pending", StatusShipped, StatusPending, true},
		{"cancel pending", StatusPending, StatusCancelled, false},
		{"cancel confirmed", StatusConfirmed, StatusCancelled, false},
		{"cancel shipped", StatusShipped, StatusCancelled, false},
		{"delivered is terminal", StatusDelivered, StatusCancelled, true},
		{"delivered cannot repeat", StatusDelivered, StatusDelivered, true},
		{"cancelled is terminal", StatusCancelled, StatusPending, true},
		{"cancelled cannot cancel again", StatusCancelled, StatusCancelled, true},
		{"unknown target", StatusPending, Status("REFUNDED"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transition(tt.current, tt.next)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled} {
		require.True(t, s.Valid(), string(s))
	}
	require.False(t, Status("REFUNDED").Valid())
}
