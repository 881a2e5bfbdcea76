package mathx

import "golang.org/x/exp/constraints"

// Scale maps x in [inMin,inMax] onto [outMin,outMax] with 64-bit
// intermediates. Input outside the range is clamped first. A reversed input
// range (inMin > inMax) inverts the axis.
func Scale[I, O constraints.Integer](x, inMin, inMax I, outMin, outMax O) O {
	if inMax == inMin {
		return outMin
	}
	xi, lo, hi := int64(x), int64(inMin), int64(inMax)
	if lo > hi {
		// Inverted axis: mirror x within the range and scale normally.
		xi = Clamp(xi, hi, lo)
		xi = lo + hi - xi
		lo, hi = hi, lo
	} else {
		xi = Clamp(xi, lo, hi)
	}
	num := (xi - lo) * (int64(outMax) - int64(outMin))
	return O(int64(outMin) + num/(hi-lo))
}
