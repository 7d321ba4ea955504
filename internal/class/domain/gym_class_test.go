package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Gym-Booking-System/internal/class/domain"
)

func TestNewGymClass(t *testing.T) {
	capacity, _ := domain.NewCapacity(10)

	cases := []struct {
		name     string
		input    string
		capacity domain.Capacity
		errIs    error
	}{
		{name: "valid", input: "Yoga", capacity: capacity},
		{name: "name is trimmed", input: "  Pilates  ", capacity: capacity},
		{name: "blank name", input: "   ", capacity: capacity, errIs: domain.ErrInvalidName},
		{name: "name too long", input: strings.Repeat("x", domain.MaxNameLength+1), capacity: capacity, errIs: domain.ErrInvalidName},
		{name: "zero value capacity", input: "Spin", capacity: domain.Capacity{}, errIs: domain.ErrInvalidCapacity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := domain.NewGymClass(tc.input, tc.capacity)
			if tc.errIs != nil {
				require.ErrorIs(t, err, tc.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tc.input), g.Name())
			assert.Zero(t, g.ID())
		})
	}
}

func TestGymClassReserveAndRelease(t *testing.T) {
	capacity, _ := domain.NewCapacity(1)
	g, err := domain.NewGymClass("Yoga", capacity)
	require.NoError(t, err)

	require.NoError(t, g.ReserveSpot())
	assert.False(t, g.IsAvailable())

	require.ErrorIs(t, g.ReserveSpot(), domain.ErrCapacityExhausted)
	assert.Equal(t, 0, g.Capacity().Available(), "a failed reservation must not change the aggregate")

	require.NoError(t, g.ReleaseSpot())
	require.ErrorIs(t, g.ReleaseSpot(), domain.ErrInvalidState)
	assert.Equal(t, 1, g.Capacity().Available())
}
