// Package lists provides small, pure helpers over ordered sequences.
// The helpers never modify their inputs.
package lists

// LengthOfTrailingPartialSubList returns the length of the longest common
// suffix of source and target, i.e. the largest k such that the last k
// elements of both slices are equal elementwise. Always the maximal k is
// returned; a shorter match is never preferred.
func LengthOfTrailingPartialSubList[T comparable](source, target []T) int {
	s := len(source) - 1
	t := len(target) - 1
	l := 0
	for l <= s && l <= t && source[s-l] == target[t-l] {
		l++
	}
	return l
}

// TrimCommonSuffix returns a new slice holding the elements of current that
// remain after removing the suffix current shares with next. The order of the
// remaining elements is preserved. If current is entirely shared, the result
// is empty but non-nil.
func TrimCommonSuffix[T comparable](current, next []T) []T {
	n := len(current) - LengthOfTrailingPartialSubList(next, current)
	out := make([]T, n)
	copy(out, current[:n])
	return out
}
