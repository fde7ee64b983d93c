package visualization

import "math"

// normalize translates the layout so its bounding box is centered at the
// origin and scales it uniformly (aspect ratio preserved) so the larger
// dimension spans [-extent, extent]. Returns the bounds of the final
// positions.
func normalize(positions map[string]Position, extent float64) Bounds {
	if len(positions) == 0 {
		return Bounds{}
	}

	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	for _, p := range positions {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	cx := (minX + maxX) / 2
	cy := (minY + maxY) / 2
	span := math.Max(maxX-minX, maxY-minY)

	scale := 1.0
	if span > 1e-9 {
		scale = (2 * extent) / span
	}

	out := Bounds{MinX: math.MaxFloat64, MaxX: -math.MaxFloat64, MinY: math.MaxFloat64, MaxY: -math.MaxFloat64}
	for id, p := range positions {
		np := Position{
			X: (p.X - cx) * scale,
			Y: (p.Y - cy) * scale,
		}
		positions[id] = np
		out.MinX = math.Min(out.MinX, np.X)
		out.MaxX = math.Max(out.MaxX, np.X)
		out.MinY = math.Min(out.MinY, np.Y)
		out.MaxY = math.Max(out.MaxY, np.Y)
	}
	return out
}
