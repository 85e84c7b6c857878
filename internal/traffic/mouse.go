package traffic

import (
	"math"
	"math/rand"

	"github.com/botarena/botarena/pkg/types"
)

// synthesizeMouse produces a mouse-movement trace for one page view.
// "linear" traces move in a straight machine line with constant steps;
// "humanized" traces wander along a curved path with jittered headings,
// which spreads the turn-angle histogram and raises entropy.
func synthesizeMouse(style string, points int, rng *rand.Rand) []types.MousePoint {
	if points < 3 {
		points = 3
	}
	switch style {
	case "humanized":
		return humanizedTrace(points, rng)
	case "linear":
		return linearTrace(points, rng)
	default:
		return nil
	}
}

func linearTrace(n int, rng *rand.Rand) []types.MousePoint {
	x := float64(rng.Intn(200))
	y := float64(rng.Intn(200))
	dx := 7.0
	dy := 3.0
	ts := int64(0)

	trace := make([]types.MousePoint, 0, n)
	for i := 0; i < n; i++ {
		trace = append(trace, types.MousePoint{X: x, Y: y, Timestamp: ts})
		x += dx
		y += dy
		ts += 16 // constant frame pacing
	}
	return trace
}

func humanizedTrace(n int, rng *rand.Rand) []types.MousePoint {
	x := 100 + rng.Float64()*400
	y := 100 + rng.Float64()*300
	heading := rng.Float64() * 2 * math.Pi
	ts := int64(0)

	trace := make([]types.MousePoint, 0, n)
	for i := 0; i < n; i++ {
		trace = append(trace, types.MousePoint{
			X:         math.Round(x*100) / 100,
			Y:         math.Round(y*100) / 100,
			Timestamp: ts,
		})
		// Wander: drift the heading and vary the step, with the
		// occasional sharp correction a real hand makes.
		heading += (rng.Float64() - 0.5) * 1.2
		if rng.Float64() < 0.12 {
			heading += (rng.Float64() - 0.5) * math.Pi
		}
		step := 2 + rng.Float64()*12
		x += math.Cos(heading) * step
		y += math.Sin(heading) * step
		ts += int64(10 + rng.Intn(40))
	}
	return trace
}
