// Package enums holds the string enums shared by models, DTOs and the
// outbox. Each mirrors a Postgres enum type of the same values.
package enums

import (
	"fmt"
	"slices"
)

func parse[T ~string](kind, value string, set []T) (T, error) {
	if i := slices.Index(set, T(value)); i >= 0 {
		return set[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
