package patterns

import "strconv"

// Skip detects an arithmetic run in the newest three numeric symbols
// (oldest to newest c, b, a with a-b == b-c != 0) and extrapolates a+(a-b).
// The guess must stay within [lo, hi]; otherwise there is no match.
func Skip(lo, hi int) Matcher {
	return func(seq []string) (string, bool) {
		if len(seq) < 3 {
			return "", false
		}
		a, errA := strconv.Atoi(seq[0])
		b, errB := strconv.Atoi(seq[1])
		c, errC := strconv.Atoi(seq[2])
		if errA != nil || errB != nil || errC != nil {
			return "", false
		}

		step := a - b
		if step == 0 || b-c != step {
			return "", false
		}
		next := a + step
		if next < lo || next > hi {
			return "", false
		}
		return strconv.Itoa(next), true
	}
}
