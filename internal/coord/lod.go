package coord

import "math"

// PixelDensityThreshold is the minimum number of screen pixels a dataset
// sample must occupy, vertically, before a higher-resolution LOD is
// considered wasted detail. Below this density the renderer falls back
// to a coarser dataset.
const PixelDensityThreshold = 1100.0

// Range enumerates the discrete display ranges the renderer supports,
// in nautical miles of vertical extent.
type Range int

const (
	Range2nm Range = iota
	Range5nm
	Range10nm
	Range20nm
	Range40nm
	Range80nm
	Range160nm
	Range320nm
	Range640nm
)

var rangeNames = [...]string{
	"2 nm", "5 nm", "10 nm", "20 nm", "40 nm", "80 nm", "160 nm", "320 nm", "640 nm",
}

func (r Range) String() string {
	if r < 0 || int(r) >= len(rangeNames) {
		return "unknown range"
	}
	return rangeNames[r]
}

// rangeToDegrees gives the vertical field of view, in degrees, for each
// display range.
var rangeToDegrees = [...]float64{
	0.0741166859218728,
	0.1852917159505975,
	0.3705834319011951,
	0.7411668638023902,
	1.482333728177738,
	2.964667456355476,
	5.929334912710953,
	12.19177852817075,
	24.38355705691446,
}

// rangeToRadians gives the vertical field of view, in radians, for each
// display range.
var rangeToRadians = [...]float64{
	0.0012935802,
	0.00323395052,
	0.00646790104,
	0.01293580208,
	0.02587160417,
	0.05174320834,
	0.10348641668,
	0.21278667699,
	0.42557335399,
}

// VerticalDegrees returns the vertical field of view in degrees for r.
func (r Range) VerticalDegrees() float64 { return rangeToDegrees[r] }

// VerticalRadians returns the vertical field of view in radians for r.
func (r Range) VerticalRadians() float64 { return rangeToRadians[r] }

// VerticalTilesLoaded returns how many rows of 1° cells must be resident
// to cover this range's vertical extent: the extent in degrees rounded
// up, plus one extra row.
func (r Range) VerticalTilesLoaded() int {
	return int(math.Ceil(r.VerticalDegrees())) + 1
}

// AllRanges returns every supported display range, in ascending order
// (smallest/most zoomed-in first).
func AllRanges() []Range {
	ranges := make([]Range, len(rangeToDegrees))
	for i := range ranges {
		ranges[i] = Range(i)
	}
	return ranges
}

// SelectLOD picks the highest-resolution entry in resolutions (ordered
// from lowest to highest resolution, dataset samples per degree) whose
// on-screen pixel density at verticalAngleRad meets threshold. Returns 0
// (the lowest resolution, always assumed available) if no entry meets
// the threshold.
func SelectLOD(resolutions []int, verticalAngleRad float64, threshold float64) int {
	for i := len(resolutions) - 1; i >= 0; i-- {
		pixelsOnScreen := float64(resolutions[i]) * verticalAngleRad
		if pixelsOnScreen >= threshold {
			return i
		}
	}
	return 0
}
