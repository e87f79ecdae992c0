package signals

// CrossAbove is true at t when a moves from below b to above it.
// Index 0 is always false and any NaN operand compares false.
func CrossAbove(a, b []float64) []bool {
	out := make([]bool, len(a))
	for t := 1; t < len(a) && t < len(b); t++ {
		out[t] = a[t-1] < b[t-1] && a[t] > b[t]
	}
	return out
}

// CrossBelow is the mirror of CrossAbove.
func CrossBelow(a, b []float64) []bool {
	out := make([]bool, len(a))
	for t := 1; t < len(a) && t < len(b); t++ {
		out[t] = a[t-1] > b[t-1] && a[t] < b[t]
	}
	return out
}

// fallsTo is true at t when x drops from above level to level or below.
func fallsTo(x []float64, level float64) []bool {
	out := make([]bool, len(x))
	for t := 1; t < len(x); t++ {
		out[t] = x[t-1] > level && x[t] <= level
	}
	return out
}

// risesTo is true at t when x climbs from below level to level or above.
func risesTo(x []float64, level float64) []bool {
	out := make([]bool, len(x))
	for t := 1; t < len(x); t++ {
		out[t] = x[t-1] < level && x[t] >= level
	}
	return out
}
