package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/anamnesos/hivemind-sub007/internal/claims"
	"github.com/anamnesos/hivemind-sub007/internal/patterns"
)

// Request is one named operation with its JSON payload.
type Request struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the tagged result envelope every operation resolves to.
// Failures are reported, never panicked across this boundary.
type Response struct {
	OK     bool            `json:"ok"`
	Reason string          `json:"reason,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// MarshalJSON flattens Result into the top-level object so callers see
// one tagged result shape: {ok, reason?, error?, ...fields}.
func (r Response) MarshalJSON() ([]byte, error) {
	out := map[string]any{"ok": r.OK}
	if r.Reason != "" {
		out["reason"] = r.Reason
	}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if len(r.Result) > 0 {
		var fields map[string]any
		if err := json.Unmarshal(r.Result, &fields); err == nil {
			for k, v := range fields {
				if _, taken := out[k]; !taken {
					out[k] = v
				}
			}
		} else {
			out["result"] = r.Result
		}
	}
	return json.Marshal(out)
}

func okResponse(result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{OK: false, Reason: claims.CodeDBError, Error: "encode result: " + err.Error()}
	}
	return Response{OK: true, Result: raw}
}

func errResponse(err error) Response {
	var oe *claims.OpError
	if errors.As(err, &oe) {
		return Response{OK: false, Reason: oe.Code, Error: oe.Message}
	}
	return Response{OK: false, Reason: claims.CodeDBError, Error: err.Error()}
}

type executor interface {
	execute(ctx context.Context, req Request) Response
	close() error
}

// ─── Shared core ─────────────────────────────────────────────────────────────

// core lazily materializes the store and miner and routes ops to them.
// Not goroutine-safe on its own; each executor serializes access.
type core struct {
	opts  Options
	store *claims.Store
	miner *patterns.Miner
	err   error
	ready bool
}

func newCore(opts Options) *core {
	return &core{opts: opts}
}

func (c *core) open() error {
	if c.ready {
		return c.err
	}
	c.ready = true

	factory := c.opts.StoreFactory
	if factory == nil {
		cfg := c.opts.Config
		factory = func() (*claims.Store, error) {
			return claims.Open(claims.Config{
				DataDir:         cfg.DataDir,
				DBFile:          cfg.DBFile,
				ActiveAgents:    cfg.ActiveAgents,
				MaxQueryResults: cfg.MaxQueryResults,
				MaxBeliefs:      cfg.MaxBeliefs,
			})
		}
	}

	store, err := factory()
	if err != nil {
		c.err = &claims.OpError{Code: claims.CodeUnavailable, Message: "store initialization failed: " + err.Error()}
		return c.err
	}
	c.store = store
	c.miner = patterns.NewMiner(store.DB())
	return nil
}

func (c *core) handle(req Request) Response {
	if err := c.open(); err != nil {
		return errResponse(err)
	}
	op, ok := operations[req.Op]
	if !ok {
		return Response{OK: false, Reason: "unknown_operation",
			Error: fmt.Sprintf("unknown operation %q", req.Op)}
	}
	result, err := op(c, req.Payload)
	if err != nil {
		return errResponse(err)
	}
	return okResponse(result)
}

func (c *core) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	c.miner = nil
	c.ready = false
	c.err = nil
	return err
}

// ─── In-process executor ─────────────────────────────────────────────────────

// inProcessExecutor runs operations on the caller's goroutine. A mutex
// serializes access since the core is not goroutine-safe.
type inProcessExecutor struct {
	core *core
	mu   sync.Mutex
}

func (e *inProcessExecutor) execute(ctx context.Context, req Request) Response {
	if err := ctx.Err(); err != nil {
		return Response{OK: false, Reason: claims.CodeUnavailable, Error: "operation abandoned: " + err.Error()}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.handle(req)
}

func (e *inProcessExecutor) close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.core.close()
}

// ─── Worker executor ─────────────────────────────────────────────────────────

type workerCall struct {
	req  Request
	resp chan Response
}

// workerExecutor hosts the store on a dedicated goroutine; requests and
// responses travel over channels. An abandoned wait (context expiry)
// returns to the caller immediately while the in-flight transaction
// still runs to completion or rollback on the worker.
type workerExecutor struct {
	calls chan workerCall
	quit  chan struct{}
	done  chan struct{}
}

func newWorkerExecutor(core *core) *workerExecutor {
	w := &workerExecutor{
		calls: make(chan workerCall),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go w.run(core)
	return w
}

func (w *workerExecutor) run(core *core) {
	defer close(w.done)
	defer func() { _ = core.close() }()
	for {
		select {
		case call := <-w.calls:
			call.resp <- core.handle(call.req)
		case <-w.quit:
			return
		}
	}
}

func (w *workerExecutor) execute(ctx context.Context, req Request) Response {
	if err := ctx.Err(); err != nil {
		return Response{OK: false, Reason: claims.CodeUnavailable, Error: "operation abandoned: " + err.Error()}
	}
	call := workerCall{req: req, resp: make(chan Response, 1)}
	select {
	case w.calls <- call:
	case <-ctx.Done():
		return Response{OK: false, Reason: claims.CodeUnavailable, Error: "operation abandoned: " + ctx.Err().Error()}
	case <-w.done:
		return Response{OK: false, Reason: claims.CodeUnavailable, Error: "worker stopped"}
	}
	select {
	case resp := <-call.resp:
		return resp
	case <-ctx.Done():
		return Response{OK: false, Reason: claims.CodeUnavailable, Error: "operation abandoned: " + ctx.Err().Error()}
	}
}

func (w *workerExecutor) close() error {
	select {
	case <-w.done:
	default:
		close(w.quit)
		<-w.done
	}
	return nil
}
