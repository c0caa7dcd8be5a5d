package patterns

// weightBase gives the newest symbol weight 10, the next 9 and so on.
const weightBase = 10

// WeightedMajority sums weight (10 - index) per symbol over the newest ten
// symbols and returns the heaviest one. Ties go to the symbol seen first.
func WeightedMajority() Matcher {
	return func(seq []string) (string, bool) {
		if len(seq) > weightBase {
			seq = seq[:weightBase]
		}
		if len(seq) == 0 {
			return "", false
		}

		weights := make(map[string]int)
		var order []string
		for i, s := range seq {
			if _, ok := weights[s]; !ok {
				order = append(order, s)
			}
			weights[s] += weightBase - i
		}

		best := order[0]
		for _, s := range order[1:] {
			if weights[s] > weights[best] {
				best = s
			}
		}
		return best, true
	}
}

// Majority returns the most frequent symbol of alphabet in seq. Ties go to
// the symbol listed first in alphabet; symbols outside alphabet are ignored.
func Majority(alphabet []string) Matcher {
	return func(seq []string) (string, bool) {
		counts := Counts(seq, alphabet)
		best, bestCount := "", 0
		for _, s := range alphabet {
			if counts[s] > bestCount {
				best, bestCount = s, counts[s]
			}
		}
		return best, bestCount > 0
	}
}

// Counts tallies how often each alphabet symbol occurs in seq. Every
// alphabet symbol is present in the result, possibly with zero.
func Counts(seq []string, alphabet []string) map[string]int {
	counts := make(map[string]int, len(alphabet))
	for _, s := range alphabet {
		counts[s] = 0
	}
	for _, s := range seq {
		if _, ok := counts[s]; ok {
			counts[s]++
		}
	}
	return counts
}
