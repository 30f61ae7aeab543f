package speed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openctrl/controlsd/internal/config"
)

func TestInitializeVCruiseClampsToRange(t *testing.T) {
	cfg := config.Default().Cruise
	got := InitializeVCruise(0, nil, 0, cfg)
	require.GreaterOrEqual(t, got, cfg.Min)
	require.LessOrEqual(t, got, cfg.Max)
}

func TestVCruiseStaysInRangeAfterButtons(t *testing.T) {
	cfg := config.Default().Cruise
	cfg.IsMetric = true
	s := New(cfg)
	s.VCruiseKph = cfg.Max - 0.5
	for i := 0; i < 5; i++ {
		s.UpdateFromButtons(map[string]bool{"accelCruise": true}, cfg)
	}
	require.LessOrEqual(t, s.VCruiseKph, cfg.Max)
	require.GreaterOrEqual(t, s.VCruiseKph, cfg.Min)
}

func TestSmoothConvergesMonotonically(t *testing.T) {
	cfg := config.Default().Cruise
	s := New(cfg)
	s.MaxSpeedCLU = 10
	target := 20.0
	prev := s.MaxSpeedCLU
	// At 0.01 per tick the remaining gap is 10*0.99^n: 1.34 after 200 ticks,
	// 0.18 after 400.
	for i := 0; i < 400; i++ {
		s.Smooth(target, true, cfg)
		require.GreaterOrEqual(t, s.MaxSpeedCLU, prev)
		require.LessOrEqual(t, s.MaxSpeedCLU, target)
		prev = s.MaxSpeedCLU
	}
	require.InDelta(t, target, s.MaxSpeedCLU, 0.5)
}

func TestSmoothSnapsWhenDisengagedOrNonPositive(t *testing.T) {
	cfg := config.Default().Cruise
	s := New(cfg)
	s.MaxSpeedCLU = 10
	s.Smooth(99, false, cfg)
	require.Equal(t, 99.0, s.MaxSpeedCLU)

	s.MaxSpeedCLU = 0
	s.Smooth(50, true, cfg)
	require.Equal(t, 50.0, s.MaxSpeedCLU)
}

// Scenario 4: curve clamp. kappa = 0.02, vEgo = 20 m/s, sccCurvatureFactor = 1.
func TestCurveClampScenario(t *testing.T) {
	cfg := config.Default().Curve
	cfg.SccCurvatureFactor = 1.0

	// Build a circular arc of radius 1/k, whose curvature is k at every
	// sample: y = r - sqrt(r^2 - x^2).
	const k = 0.02
	r := 1 / k
	n := cfg.TrajectorySize
	path := make([]Point2D, n)
	dx := 1.0
	for i := 0; i < n; i++ {
		x := float64(i) * dx
		path[i] = Point2D{X: x, Y: r - math.Sqrt(r*r-x*x)}
	}

	got := RecomputeCurveSpeed(path, 20.0, cfg)
	want := math.Sqrt((2.975-0.75)/0.02) * 0.85
	require.InDelta(t, want, got, 0.6)
}

// Scenario 5: lead clamp rising edge.
func TestLeadSafeSpeedScenario(t *testing.T) {
	cfg := config.Default().Lead
	vEgo := 22.0
	got := LeadSafeSpeed(30, -3, vEgo, cfg, 8.05)
	require.Greater(t, got, 0.0)
	require.Less(t, got, vEgo)
}

func TestArbitrateLeadRisingEdgeSeedsDisplay(t *testing.T) {
	root := config.Default()
	s := New(root.Cruise)
	s.VCruiseKph = 90
	s.CurveSpeedMs = 255
	vEgo := 22.0

	res := s.Arbitrate(vEgo, true, RoadLimitInput{}, LeadInput{Valid: true, DRel: 30, VRel: -3}, root.Curve, root.RoadLimit, root.Lead, root.Cruise)
	require.Less(t, res.Target, vEgo)
	require.True(t, s.LimitedLead)
	// The display is seeded to vEgo+3 on the rising edge, then the same
	// tick's low-pass step moves it toward the target.
	seed := vEgo + 3
	require.InDelta(t, seed+root.Cruise.SmoothingPerTick*(res.Target-seed), s.MaxSpeedCLU, 1e-9)
}

func TestArbitrateRoadLimitSlowingDownEdge(t *testing.T) {
	root := config.Default()
	s := New(root.Cruise)
	s.VCruiseKph = 100
	s.CurveSpeedMs = 255

	res := s.Arbitrate(25, true, RoadLimitInput{Valid: true, ApplyKph: 50}, LeadInput{}, root.Curve, root.RoadLimit, root.Lead, root.Cruise)
	require.True(t, s.SlowingDownAlert)
	require.True(t, s.SlowingDownSound) // rising edge this tick
	require.InDelta(t, 50.0/3.6, res.Target, 1e-9)

	res2 := s.Arbitrate(25, true, RoadLimitInput{Valid: true, ApplyKph: 50}, LeadInput{}, root.Curve, root.RoadLimit, root.Lead, root.Cruise)
	require.True(t, s.SlowingDownAlert)
	require.False(t, s.SlowingDownSound) // no longer a rising edge
	_ = res2
}
