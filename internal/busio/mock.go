package busio

import (
	"context"

	"github.com/openctrl/controlsd/internal/carstate"
)

// MockAdapter returns a fixed, deterministic Frame every tick. Grounded on
// the teacher's MockQuotesAdapter (internal/adapters/mock.go): predefined
// canned data plus test-only setters for flipping health/validity.
type MockAdapter struct {
	frame    Frame
	healthOk bool
}

// NewMockAdapter builds a mock bus adapter seeded with a stationary,
// healthy vehicle state.
func NewMockAdapter() *MockAdapter {
	valid := make(map[Channel]bool, len(AllChannels))
	for _, ch := range AllChannels {
		valid[ch] = true
	}
	return &MockAdapter{
		healthOk: true,
		frame: Frame{
			CS: carstate.CarState{
				VEgo:     0,
				CANValid: true,
			},
			Initialized: true,
			Valid:       valid,
			Health:      Healthy(),
		},
	}
}

func (m *MockAdapter) Sample(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	default:
	}
	return m.frame, nil
}

func (m *MockAdapter) HealthCheck(ctx context.Context) error {
	if !m.healthOk {
		return errMockUnhealthy
	}
	return nil
}

func (m *MockAdapter) Close() error { return nil }

// SetFrame lets tests install a custom frame for the next Sample call.
func (m *MockAdapter) SetFrame(f Frame) { m.frame = f }

// SetHealth lets tests flip the adapter's reported health.
func (m *MockAdapter) SetHealth(ok bool) { m.healthOk = ok }

var errMockUnhealthy = mockError("mock adapter unhealthy")

type mockError string

func (e mockError) Error() string { return string(e) }
