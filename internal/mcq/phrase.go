package mcq

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Phrase renders the correct-answer phrase for k displayed statements of
// which the 1-based positions in trueIdx are true. trueIdx must be sorted.
//
//	none true       None of the above
//	one true        p only
//	two of two      Both 1 and 2
//	two of three+   p and q only
//	all of three    1, 2 and 3
//	all of four     1, 2, 3 and 4
//	three of four   p, q and r only
func Phrase(k int, trueIdx []int) string {
	n := len(trueIdx)
	s := make([]string, n)
	for i, p := range trueIdx {
		s[i] = strconv.Itoa(p)
	}
	switch {
	case n == 0:
		return "None of the above"
	case n == 1:
		return s[0] + " only"
	case n == 2 && k == 2:
		return "Both 1 and 2"
	case n == 2:
		return s[0] + " and " + s[1] + " only"
	case n == k:
		return strings.Join(s[:n-1], ", ") + " and " + s[n-1]
	default:
		return strings.Join(s[:n-1], ", ") + " and " + s[n-1] + " only"
	}
}

// parseToken resolves a layout option ("1", "2,3", "all", "none") to the
// sorted positions it denotes.
func parseToken(k int, tok string) ([]int, error) {
	switch strings.TrimSpace(tok) {
	case "all":
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i + 1
		}
		return idx, nil
	case "none":
		return []int{}, nil
	}

	var idx []int
	for _, part := range strings.Split(tok, ",") {
		p, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("option %q: %q is not a statement position", tok, part)
		}
		if p < 1 || p > k {
			return nil, fmt.Errorf("option %q: position %d outside 1..%d", tok, p, k)
		}
		if slices.Contains(idx, p) {
			return nil, fmt.Errorf("option %q: position %d repeated", tok, p)
		}
		idx = append(idx, p)
	}
	slices.Sort(idx)
	return idx, nil
}

// reachablePhrases returns every phrase k displayed statements can produce,
// one per subset of positions.
func reachablePhrases(k int) []string {
	var out []string
	for mask := 0; mask < 1<<k; mask++ {
		var idx []int
		for p := 1; p <= k; p++ {
			if mask&(1<<(p-1)) != 0 {
				idx = append(idx, p)
			}
		}
		out = append(out, Phrase(k, idx))
	}
	return out
}
