package gateway

import "context"

// Result carries the outcome of a query run off the caller's goroutine.
type Result struct {
	Body string
	Err  error
}

// Go runs fn on its own goroutine and delivers exactly one Result on the
// returned channel. The channel is buffered so an abandoned result never
// blocks the worker.
func Go(ctx context.Context, fn func(context.Context) (string, error)) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		body, err := fn(ctx)
		out <- Result{Body: body, Err: err}
		close(out)
	}()
	return out
}

// FetchQuotaAsync is FetchQuota delivered on a channel.
func FetchQuotaAsync(ctx context.Context, f Fetcher, auth AuthContext) <-chan Result {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return f.FetchQuota(ctx, auth)
	})
}

// FetchUsageStatAsync is FetchUsageStat delivered on a channel.
func FetchUsageStatAsync(ctx context.Context, f Fetcher, auth AuthContext, window TimeRange) <-chan Result {
	return Go(ctx, func(ctx context.Context) (string, error) {
		return f.FetchUsageStat(ctx, auth, window)
	})
}
