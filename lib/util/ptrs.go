package util

func Ptr[T any](t T) *T {
	return &t
}

// ValueOr dereferences p, or returns or when p is nil
func ValueOr[T any](p *T, or T) T {
	if p == nil {
		return or
	}
	return *p
}
