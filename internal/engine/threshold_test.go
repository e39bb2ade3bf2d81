package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, 2000, th.Limit(Documents))
	assert.Equal(t, 5, th.Limit(Journals))
	assert.Equal(t, 20, th.Limit(Issues))
}

func TestThresholds_Check(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		entity  Entity
		count   int
		blocked bool
	}{
		{Documents, 2000, false},
		{Documents, 2001, true},
		{Journals, 5, false},
		{Journals, 6, true},
		{Issues, 20, false},
		{Issues, 21, true},
		{Issues, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.entity, tt.count), func(t *testing.T) {
			err := th.Check(tt.entity, tt.count)
			if !tt.blocked {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsThresholdExceeded(err))

			var te *ThresholdExceededError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.entity, te.Entity)
			assert.Equal(t, tt.count, te.Count)
			assert.Equal(t, th.Limit(tt.entity), te.Limit)
		})
	}
}

func TestThresholdExceededError_Message(t *testing.T) {
	err := &ThresholdExceededError{Entity: Journals, Count: 6, Limit: 5}
	assert.Equal(t, "journals removal batch exceeds threshold: 6 removals > 5 limit", err.Error())

	wrapped := fmt.Errorf("phase: %w", err)
	assert.True(t, IsThresholdExceeded(wrapped))
	assert.False(t, IsThresholdExceeded(errors.New("other")))
}
