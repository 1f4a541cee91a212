package configs

import "errors"

// Lookup is First that also reports whether the path is present.
func Lookup[T any](loader Loader, path string) (value T, ok bool) {
	if err := loader.AssignFirst(path, &value); err != nil {
		if errors.Is(err, ErrValueNotFound) {
			return value, false
		}
		panic(err)
	}
	return value, true
}
