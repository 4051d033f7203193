// Package bridge carries commands between a host process and a
// wizard.Wizard as line-delimited JSON.
//
// Each request line is answered by exactly one response line, in order.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/shazow/wifiwizard/internal/wizard"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// maxLineSize bounds a single request line.
const maxLineSize = 1 << 20

// Request is one command from the host.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty" jsonschema:"oneof_type=string;integer,description=Opaque request id echoed in the response"`
	Action string          `json:"action" jsonschema:"required,description=Command wire name or alias"`
	Args   json.RawMessage `json:"args,omitempty" jsonschema:"type=array,description=Positional arguments"`
}

// Response is the single outcome of a Request.
type Response struct {
	ID      json.RawMessage `json:"id,omitempty" jsonschema:"oneof_type=string;integer"`
	Status  string          `json:"status" jsonschema:"enum=success,enum=error"`
	Payload any             `json:"payload,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Dispatcher runs one command. *wizard.Wizard implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, action string, args wizard.Args) wizard.Result
}

// Bridge serves requests read from r and writes responses to w.
type Bridge struct {
	d      Dispatcher
	logger *slog.Logger

	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a Bridge that writes responses to w.
func New(d Dispatcher, w io.Writer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		d:      d,
		logger: logger.With("component", "bridge"),
		enc:    json.NewEncoder(w),
	}
}

// Serve handles requests until r is exhausted or ctx is done. Requests are
// handled one at a time.
func (b *Bridge) Serve(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := b.write(b.Handle(ctx, line)); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}
	return nil
}

// Handle decodes one request line and runs it.
func (b *Bridge) Handle(ctx context.Context, line []byte) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		b.logger.DebugContext(ctx, "malformed request", "error", err)
		return Response{Status: StatusError, Message: fmt.Sprintf("malformed request: %v", err)}
	}
	args, err := wizard.ParseArgs(req.Args)
	if err != nil {
		return Response{ID: req.ID, Status: StatusError, Message: err.Error()}
	}

	res := b.d.Dispatch(ctx, req.Action, args)
	if !res.OK {
		return Response{ID: req.ID, Status: StatusError, Message: res.Message}
	}
	return Response{ID: req.ID, Status: StatusSuccess, Payload: res.Payload}
}

func (b *Bridge) write(resp Response) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enc.Encode(resp)
}
