package core

import "context"

// RunOrigin identifies the client that started a transfer. It is stored with
// the run and never shown in API responses.
type RunOrigin struct {
	IPAddress string
	UserAgent string
}

type originKey struct{}

// WithRunOrigin returns ctx carrying o for the runs started under it.
func WithRunOrigin(ctx context.Context, o RunOrigin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// RunOriginFrom returns the origin stored in ctx, or the zero RunOrigin for
// transfers started outside a request (the CLI, tests).
func RunOriginFrom(ctx context.Context) RunOrigin {
	o, _ := ctx.Value(originKey{}).(RunOrigin)
	return o
}
