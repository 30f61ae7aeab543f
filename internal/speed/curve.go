package speed

import (
	"math"

	"github.com/openctrl/controlsd/internal/config"
)

// Point2D is one sample of the planner's predicted path, in vehicle frame.
type Point2D struct {
	X, Y float64
}

// interp is a two-point linear interpolation, clamped at the ends, mirroring
// the teacher's numeric-helper style (small, pure, no allocation).
func interp(x, x0, x1, y0, y1 float64) float64 {
	if x <= x0 {
		return y0
	}
	if x >= x1 {
		return y1
	}
	return y0 + (x-x0)/(x1-x0)*(y1-y0)
}

// curvature computes κ = y″ / (1 + y′²)^1.5 at each interior sample of path
// via central finite differences, per spec.md §4.5.
func curvature(path []Point2D) []float64 {
	n := len(path)
	k := make([]float64, n)
	for i := 1; i < n-1; i++ {
		dx1 := path[i].X - path[i-1].X
		dx2 := path[i+1].X - path[i].X
		if dx1 == 0 || dx2 == 0 {
			continue
		}
		dy1 := (path[i].Y - path[i-1].Y) / dx1
		dy2 := (path[i+1].Y - path[i].Y) / dx2
		yPrime := (dy1 + dy2) / 2
		yDoublePrime := (dy2 - dy1) / ((dx1 + dx2) / 2)
		denom := math.Pow(1+yPrime*yPrime, 1.5)
		if denom == 0 {
			continue
		}
		k[i] = yDoublePrime / denom
	}
	return k
}

// RecomputeCurveSpeed recomputes curve_speed_ms from the planner's
// predicted path, per spec.md §4.5's first cal_curve_speed definition (the
// Open Question in spec.md §9 is resolved in favor of this one: 20-tick
// cadence at the caller, interp-based window, 0.85·sccCurvatureFactor
// attenuation).
func RecomputeCurveSpeed(path []Point2D, vEgoMs float64, cfg config.Curve) float64 {
	if len(path) < cfg.WindowLength+2 {
		return 255
	}
	k := curvature(path)

	start := int(interp(vEgoMs, 10, 27, 10, float64(cfg.TrajectorySize-10)))
	end := start + cfg.WindowLength
	if end > len(k) {
		end = len(k)
	}
	if start >= end {
		return 255
	}
	window := k[start:end]

	aYMax := 2.975 - 0.0375*vEgoMs
	if aYMax < 0 {
		aYMax = 0
	}

	sum := 0.0
	for _, kv := range window {
		ak := math.Abs(kv)
		if ak < 1e-4 {
			ak = 1e-4
		}
		sum += math.Sqrt(aYMax / ak)
	}
	mean := sum / float64(len(window))
	vKappa := mean * 0.85 * cfg.SccCurvatureFactor

	if math.IsNaN(vKappa) {
		return 255
	}
	if vKappa < vEgoMs {
		if vKappa < cfg.MinCurveSpeedMs {
			return cfg.MinCurveSpeedMs
		}
		return vKappa
	}
	return 255
}
