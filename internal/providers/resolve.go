// Package providers resolves concrete engine implementations. Callers depend
// only on the capability interfaces in the subpackages and never branch on
// provider identity.
package providers

import (
	"context"

	"github.com/babelroom/babelroom/internal/utils"
)

// Capability is the common shape of every engine provider.
type Capability interface {
	Name() string
	Available(ctx context.Context) bool
}

// Resolve picks the preferred provider by name when it is available, else the
// first available candidate in registration order.
func Resolve[T Capability](ctx context.Context, prefer string, candidates ...T) (T, error) {
	const op = "providers.Resolve"

	var zero T
	if prefer != "" {
		for _, c := range candidates {
			if c.Name() == prefer && c.Available(ctx) {
				return c, nil
			}
		}
	}
	for _, c := range candidates {
		if c.Available(ctx) {
			return c, nil
		}
	}
	return zero, utils.E(utils.CodeUnavailable, op, "no available provider", nil)
}
