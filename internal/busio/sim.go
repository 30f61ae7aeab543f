package busio

import (
	"context"
	"math"

	"github.com/openctrl/controlsd/internal/carstate"
)

// SimAdapter produces deterministic, time-varying frames for scenario
// testing (a straight cruise, a fixed curvature, a closing lead vehicle),
// grounded on the teacher's SimQuotesAdapter (internal/adapters/sim.go):
// parametric synthetic data driven off an internal tick counter instead of
// canned fixtures.
type SimAdapter struct {
	tick       int
	Scenario   SimScenario
	vEgo       float64
	curvature  float64
}

// SimScenario selects which canned trajectory SimAdapter produces.
type SimScenario int

const (
	ScenarioStraightCruise SimScenario = iota
	ScenarioConstantCurve
	ScenarioClosingLead
)

// NewSimAdapter builds a sim adapter running the given scenario at the
// given starting speed (m/s).
func NewSimAdapter(scenario SimScenario, vEgo float64) *SimAdapter {
	return &SimAdapter{Scenario: scenario, vEgo: vEgo, curvature: 0.02}
}

func (s *SimAdapter) Sample(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	default:
	}
	s.tick++

	valid := make(map[Channel]bool, len(AllChannels))
	for _, ch := range AllChannels {
		valid[ch] = true
	}

	frame := Frame{
		CS: carstate.CarState{
			VEgo:        s.vEgo,
			CANValid:    true,
			CruiseEnabled: true,
			AdaptiveCruise: true,
		},
		Initialized: s.tick > 1,
		Valid:       valid,
		Health:      Healthy(),
	}

	switch s.Scenario {
	case ScenarioConstantCurve:
		frame.Path = s.curvedPath(33, s.curvature)
	case ScenarioClosingLead:
		frame.LeadValid = true
		frame.LeadDRel = math.Max(5, 60-float64(s.tick)*0.1)
		frame.LeadVRel = -3
	default:
		frame.Path = s.curvedPath(33, 0)
	}

	return frame, nil
}

// curvedPath builds a circular arc of curvature k (radius 1/k) of n points
// spaced 1m apart in x, y = r - sqrt(r^2 - x^2); k == 0 gives a straight
// line.
func (s *SimAdapter) curvedPath(n int, k float64) []PathPoint {
	path := make([]PathPoint, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		y := 0.0
		if k != 0 {
			r := 1 / k
			y = r - math.Sqrt(r*r-x*x)
		}
		path[i] = PathPoint{X: x, Y: y}
	}
	return path
}

func (s *SimAdapter) HealthCheck(ctx context.Context) error { return nil }
func (s *SimAdapter) Close() error                          { return nil }
