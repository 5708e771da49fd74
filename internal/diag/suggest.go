package diag

import "fmt"

// Closest returns the candidate nearest to word by edit distance, provided
// the distance is at most maxDist. ok is false when nothing is close enough.
func Closest(word string, candidates []string, maxDist int) (best string, ok bool) {
	minDistance := maxDist + 1
	for _, c := range candidates {
		if d := levenshteinDistance(word, c); d < minDistance {
			minDistance = d
			best = c
		}
	}
	return best, minDistance <= maxDist
}

// DidYouMean formats a suggestion for the closest candidate, or returns ""
// when no candidate is within maxDist edits.
func DidYouMean(word string, candidates []string, maxDist int) string {
	if best, ok := Closest(word, candidates, maxDist); ok {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return ""
}

func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}
