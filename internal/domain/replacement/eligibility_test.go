//go:build unit

package replacement_test

import (
	"testing"
	"time"

	"orderflow/internal/domain/order"
	"orderflow/internal/domain/replacement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedOrder(createdAt time.Time) *order.Order {
	completed := createdAt.Add(2 * time.Hour)
	return &order.Order{
		TransactionID: "tx-1",
		Status:        order.StatusCompleted,
		CreatedAt:     createdAt,
		CompletedAt:   &completed,
	}
}

func TestCheckEligibility(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		order         *order.Order
		hasActive     bool
		now           time.Time
		expectedError error
	}{
		{
			name:  "success: 13 hours after creation",
			order: completedOrder(createdAt),
			now:   createdAt.Add(13 * time.Hour),
		},
		{
			name:  "success: exactly at the 12 hour boundary",
			order: completedOrder(createdAt),
			now:   createdAt.Add(12 * time.Hour),
		},
		{
			name:  "success: exactly at the 30 day boundary",
			order: completedOrder(createdAt),
			now:   createdAt.Add(30 * 24 * time.Hour),
		},
		{
			name:          "error: order does not exist",
			order:         nil,
			now:           createdAt,
			expectedError: replacement.ErrOrderNotFound,
		},
		{
			name: "error: order not completed",
			order: &order.Order{
				Status:    order.StatusProcessing,
				CreatedAt: createdAt,
			},
			now:           createdAt.Add(13 * time.Hour),
			expectedError: replacement.ErrOrderNotCompleted,
		},
		{
			name:          "error: one minute before the 12 hour window opens",
			order:         completedOrder(createdAt),
			now:           createdAt.Add(12*time.Hour - time.Minute),
			expectedError: replacement.ErrRequestTooEarly,
		},
		{
			name:          "error: one minute past the 30 day deadline",
			order:         completedOrder(createdAt),
			now:           createdAt.Add(30*24*time.Hour + time.Minute),
			expectedError: replacement.ErrRequestWindowClosed,
		},
		{
			name:          "error: another replacement is still active",
			order:         completedOrder(createdAt),
			hasActive:     true,
			now:           createdAt.Add(13 * time.Hour),
			expectedError: replacement.ErrAlreadyActive,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := replacement.CheckEligibility(tc.order, tc.hasActive, tc.now)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeadline(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	o := completedOrder(createdAt)

	require.Equal(t, createdAt.AddDate(0, 0, 30), replacement.Deadline(o))
}
