package settings

import "context"

// runKey is the context key for the current Run.
type runKey struct{}

// IntoContext returns a copy of ctx carrying run. Packages below cmd read
// the state directory and storage backend from it instead of from flags.
func IntoContext(ctx context.Context, run *Run) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// FromContext returns the Run stored by IntoContext.
func FromContext(ctx context.Context) (*Run, bool) {
	run, ok := ctx.Value(runKey{}).(*Run)
	return run, ok
}
