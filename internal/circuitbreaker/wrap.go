package circuitbreaker

import "context"

// Wrap binds fn to the named breaker from the registry and returns a
// function with the same shape. Call sites keep a plain function value and
// never touch the breaker directly.
func Wrap[T any](r *Registry, name string, cfg Config, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	cb := r.GetOrCreate(name, cfg)
	return func(ctx context.Context) (T, error) {
		return Do(ctx, cb, fn)
	}
}
