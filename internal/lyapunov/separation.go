package lyapunov

import (
	"math"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/sim"
)

// SeparationSeries returns, per sample, the mean log distance of the
// tracked particle in every direction from its position in direction 0.
// Samples where every direction coincides with direction 0 are -Inf.
func SeparationSeries(traj [][]sim.Sample, box dynamo.Box) []float64 {
	if len(traj) < 2 {
		return nil
	}
	samples := len(traj[0])
	for _, t := range traj {
		samples = min(samples, len(t))
	}

	out := make([]float64, samples)
	for s := 0; s < samples; s++ {
		var sum float64
		n := 0
		for d := 1; d < len(traj); d++ {
			dist := box.Distance(traj[d][s].Pos, traj[0][s].Pos)
			if dist > 0 {
				sum += math.Log(dist)
				n++
			}
		}
		if n == 0 {
			out[s] = math.Inf(-1)
			continue
		}
		out[s] = sum / float64(n)
	}
	return out
}

// GrowthRate fits the slope of series against time by least squares,
// skipping non-finite points. interval is the time between samples.
func GrowthRate(series []float64, interval float64) float64 {
	var sx, sy, sxx, sxy, n float64
	for i, y := range series {
		if math.IsInf(y, 0) || math.IsNaN(y) {
			continue
		}
		x := float64(i) * interval
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
		n++
	}
	den := n*sxx - sx*sx
	if n < 2 || den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}
