package progress

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/gridcomp/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	// EventTileDone is emitted for every finished tile.
	EventTileDone = "tile_done"
	// EventEvaluationDone is emitted once per evaluation.
	EventEvaluationDone = "evaluation_done"

	connectTimeout = 15 * time.Second
)

// SocketIOOptions configure the connection of a SocketIOReporter.
type SocketIOOptions struct {
	Namespace          string
	InsecureSkipVerify bool
}

// SocketIOReporter streams progress events to a socket.io endpoint, such as
// a viewer that displays tiles as they finish.
type SocketIOReporter struct {
	emit       func(event string, data any)
	disconnect func()
}

// DialSocketIO connects to rawURL and returns a reporter once the connection
// is established.
func DialSocketIO(ctx context.Context, rawURL string, o SocketIOOptions) (*SocketIOReporter, error) {
	logger := ctxlog.FromContext(ctx).With("reporter", "socketio", "url", rawURL)

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Progress reporter connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})

	logger.Debug("Initiating connection...")
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}

	return newSocketIOReporter(
		func(event string, data any) { io.Emit(event, data) },
		func() { io.Disconnect() },
	), nil
}

func newSocketIOReporter(emit func(string, any), disconnect func()) *SocketIOReporter {
	return &SocketIOReporter{emit: emit, disconnect: disconnect}
}

func (r *SocketIOReporter) TileDone(_ context.Context, ev Event) {
	r.emit(EventTileDone, ev)
}

func (r *SocketIOReporter) EvaluationDone(_ context.Context, evaluation string, err error) {
	payload := map[string]any{"evaluation": evaluation, "ok": err == nil}
	if err != nil {
		payload["error"] = err.Error()
	}
	r.emit(EventEvaluationDone, payload)
}

// Close disconnects from the endpoint.
func (r *SocketIOReporter) Close() error {
	r.disconnect()
	return nil
}
