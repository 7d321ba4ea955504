package apperr_test

import (
	"net/http"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/dmehra2102/Gym-Booking-System/pkg/apperr"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.New(apperr.Validation, "bad input"), http.StatusBadRequest},
		{"not found", apperr.New(apperr.NotFound, "missing"), http.StatusNotFound},
		{"exhausted", apperr.New(apperr.CapacityExhausted, "full"), http.StatusConflict},
		{"communication", apperr.Wrap(errors.New("dial tcp: refused"), apperr.Communication, "class service"), http.StatusServiceUnavailable},
		{"unmarked", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.HTTPStatus(tc.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := apperr.New(apperr.NotFound, "class 7 not found")
	wrapped := errors.Wrap(errors.Wrap(base, "availability"), "create booking")

	assert.True(t, errors.Is(wrapped, apperr.NotFound))
	assert.True(t, errors.Is(wrapped, base))
	assert.False(t, errors.Is(wrapped, apperr.Communication))
	assert.Equal(t, apperr.NotFound, apperr.KindOf(wrapped))
}

func TestSentinelsOfOneKindAreDistinct(t *testing.T) {
	invalidName := apperr.New(apperr.Validation, "name is required")
	invalidCapacity := apperr.New(apperr.Validation, "capacity must be positive")
	wrapped := errors.Wrap(invalidName, "create class")

	assert.True(t, errors.Is(wrapped, invalidName))
	assert.False(t, errors.Is(wrapped, invalidCapacity))
	assert.True(t, errors.Is(wrapped, apperr.Validation))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, apperr.Wrap(nil, apperr.Internal, "noop"))
}
