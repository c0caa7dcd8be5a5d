// Package patterns holds the sequence matchers used by the predictors.
// Every matcher reads a newest-first symbol sequence and either returns the
// symbol it expects next or reports no match. No match is not an error.
package patterns

// Matcher inspects a newest-first sequence.
type Matcher func(seq []string) (string, bool)

// Run matches when the newest k symbols are identical and predicts that symbol again.
func Run(k int) Matcher {
	return func(seq []string) (string, bool) {
		if k < 1 || len(seq) < k {
			return "", false
		}
		for i := 1; i < k; i++ {
			if seq[i] != seq[0] {
				return "", false
			}
		}
		return seq[0], true
	}
}

// Alternation detects period-p alternation for p = 2, 3 and 4:
//
//	p=2  [A,B]      -> A
//	p=3  [A,B,A]    -> B
//	p=4  [A,B,A,B]  -> A
//
// Any other period never matches.
func Alternation(p int) Matcher {
	return func(seq []string) (string, bool) {
		if len(seq) < p {
			return "", false
		}
		switch p {
		case 2:
			if seq[0] != seq[1] {
				return seq[0], true
			}
		case 3:
			if seq[0] == seq[2] && seq[0] != seq[1] {
				return seq[1], true
			}
		case 4:
			if seq[0] == seq[2] && seq[1] == seq[3] && seq[0] != seq[1] {
				return seq[0], true
			}
		}
		return "", false
	}
}

// BlockReversal matches [A,A,B,B] and predicts A.
func BlockReversal() Matcher {
	return func(seq []string) (string, bool) {
		if len(seq) < 4 {
			return "", false
		}
		if seq[0] == seq[1] && seq[2] == seq[3] && seq[0] != seq[2] {
			return seq[0], true
		}
		return "", false
	}
}

// Lag predicts the symbol k rounds back. Lag(1) is the last-resort
// "alternate" guess of the sequence preset.
func Lag(k int) Matcher {
	return func(seq []string) (string, bool) {
		if k < 0 || len(seq) <= k {
			return "", false
		}
		return seq[k], true
	}
}

// SelfSimilar looks for the newest minLen..maxLen symbols earlier in the
// sequence. Shorter patterns are tried first and the most recent earlier
// occurrence wins; the prediction is the symbol that came right after that
// occurrence in time.
func SelfSimilar(minLen, maxLen int) Matcher {
	return func(seq []string) (string, bool) {
		for i := minLen; i <= maxLen; i++ {
			if i < 1 || len(seq) < i+1 {
				break
			}
			for j := 1; j+i <= len(seq); j++ {
				if equal(seq[:i], seq[j:j+i]) {
					return seq[j-1], true
				}
			}
		}
		return "", false
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
