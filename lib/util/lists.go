package util

func Contains[S ~[]T, T comparable](list S, target T) bool {
	return IndexOf(list, target) >= 0
}

func IndexOf[S ~[]T, T comparable](list S, target T) int {
	for i, x := range list {
		if x == target {
			return i
		}
	}
	return -1
}

// Remove returns a new slice without any element equal to target
func Remove[S ~[]T, T comparable](slice S, target T) S {
	out := make(S, 0, len(slice))
	for _, x := range slice {
		if x != target {
			out = append(out, x)
		}
	}
	return out
}

// Unique drops repeated elements, keeping the first occurrence
func Unique[S ~[]T, T comparable](slice S) S {
	seen := make(map[T]bool, len(slice))
	out := make(S, 0, len(slice))
	for _, x := range slice {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

func Map[S ~[]T, T, U any](slice S, f func(T) U) []U {
	out := make([]U, len(slice))
	for i, t := range slice {
		out[i] = f(t)
	}
	return out
}
