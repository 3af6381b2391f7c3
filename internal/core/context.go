package core

import "context"

type clientKey struct{}

// Client identifies who started a run. Both fields may be empty, for
// example when the CLI runs locally.
type Client struct {
	IP        string
	UserAgent string
}

// WithClient returns ctx carrying c for the run history.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFromContext returns the client stored by WithClient.
func ClientFromContext(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}
