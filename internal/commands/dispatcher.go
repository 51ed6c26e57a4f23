package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/samvad-hq/quota-watch/pkg/gateway"
)

// Command names accepted by Invoke.
const (
	FetchQuota     = "fetch_quota"
	FetchUsageStat = "fetch_usage_stat"
)

// Argument names.
const (
	ArgURL            = "url"
	ArgCookie         = "cookie"
	ArgUserID         = "userId"
	ArgStartTimestamp = "startTimestamp"
	ArgEndTimestamp   = "endTimestamp"
)

// Args are named command arguments, typically decoded from JSON.
type Args map[string]any

// ErrUnknownCommand is returned by Invoke for unregistered names.
var ErrUnknownCommand = errors.New("unknown command")

// ArgumentError reports a missing or mistyped argument.
type ArgumentError struct {
	Name string
	msg  string
}

func (e *ArgumentError) Error() string { return e.msg }

func argError(name, format string, a ...any) error {
	return &ArgumentError{Name: name, msg: fmt.Sprintf(format, a...)}
}

type handler func(ctx context.Context, args Args) (string, error)

// Dispatcher routes named commands to the gateway operations.
type Dispatcher struct {
	handlers map[string]handler
}

// NewDispatcher registers the gateway commands served by f.
func NewDispatcher(f gateway.Fetcher) *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]handler, 2)}
	d.handlers[FetchQuota] = func(ctx context.Context, args Args) (string, error) {
		auth, err := authArgs(args)
		if err != nil {
			return "", err
		}
		return f.FetchQuota(ctx, auth)
	}
	d.handlers[FetchUsageStat] = func(ctx context.Context, args Args) (string, error) {
		auth, err := authArgs(args)
		if err != nil {
			return "", err
		}
		start, err := int64Arg(args, ArgStartTimestamp)
		if err != nil {
			return "", err
		}
		end, err := int64Arg(args, ArgEndTimestamp)
		if err != nil {
			return "", err
		}
		return f.FetchUsageStat(ctx, auth, gateway.TimeRange{Start: start, End: end})
	}
	return d
}

// Names lists the registered commands.
func (d *Dispatcher) Names() []string {
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Invoke runs the named command and blocks until it completes.
func (d *Dispatcher) Invoke(ctx context.Context, name string, args Args) (string, error) {
	h, ok := d.handlers[name]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h(ctx, args)
}

// InvokeAsync runs the named command on its own goroutine. The channel
// receives exactly one result.
func (d *Dispatcher) InvokeAsync(ctx context.Context, name string, args Args) <-chan gateway.Result {
	return gateway.Go(ctx, func(ctx context.Context) (string, error) {
		return d.Invoke(ctx, name, args)
	})
}

func authArgs(args Args) (gateway.AuthContext, error) {
	url, err := stringArg(args, ArgURL)
	if err != nil {
		return gateway.AuthContext{}, err
	}
	cookie, err := stringArg(args, ArgCookie)
	if err != nil {
		return gateway.AuthContext{}, err
	}
	userID, err := stringArg(args, ArgUserID)
	if err != nil {
		return gateway.AuthContext{}, err
	}
	return gateway.AuthContext{BaseURL: url, Cookie: cookie, UserID: userID}, nil
}

func stringArg(args Args, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", argError(name, "missing argument %q", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", argError(name, "argument %q must be a string, got %T", name, raw)
	}
	return s, nil
}

func int64Arg(args Args, name string) (int64, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, argError(name, "missing argument %q", name)
	}
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, argError(name, "argument %q must be an integer, got %v", name, v)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, argError(name, "argument %q must be an integer: %v", name, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, argError(name, "argument %q must be an integer: %v", name, err)
		}
		return n, nil
	default:
		return 0, argError(name, "argument %q must be an integer, got %T", name, raw)
	}
}
