package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/browserpike/backend/internal/shared/faults"
	"github.com/dop251/goja"
)

// probeOrigin stands in for the visitor's origin when the shim runs here
const probeOrigin = "http://sandbox.local"

// ProbeResult reports what the shim did with one request
type ProbeResult struct {
	Requested  string        `json:"requested"`
	Fetched    string        `json:"fetched"`
	Redirected bool          `json:"redirected"`
	Duration   time.Duration `json:"duration"`
}

// Runtime executes shim code in an embedded JS engine with a minimal host:
// a URL constructor, location, and fetch and importScripts functions that
// record their arguments
type Runtime struct {
	timeout time.Duration
}

// NewRuntime creates a runtime whose executions are interrupted after timeout
func NewRuntime(timeout time.Duration) *Runtime {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Runtime{timeout: timeout}
}

// Compile parses script, failing on syntax errors
func (r *Runtime) Compile(name, script string) (*goja.Program, error) {
	prog, err := goja.Compile(name, script, false)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	return prog, nil
}

// ImportResult reports what the shim did with one importScripts call
type ImportResult struct {
	Requested []string      `json:"requested"`
	Loaded    []string      `json:"loaded"`
	Duration  time.Duration `json:"duration"`
}

// Probe installs prog in a fresh VM whose page lives at documentPath, then
// calls fetch(ref) and reports the URL the original fetch received
func (r *Runtime) Probe(ctx context.Context, prog *goja.Program, documentPath, ref string) (*ProbeResult, error) {
	start := time.Now()
	h, err := r.call(ctx, prog, documentPath, "fetch", ref)
	if err != nil {
		return nil, err
	}

	fetched := h.fetched()
	return &ProbeResult{
		Requested:  ref,
		Fetched:    fetched,
		Redirected: fetched != ref,
		Duration:   time.Since(start),
	}, nil
}

// ProbeImports calls importScripts(refs...) the way a worker spawned by the
// entry document would and reports the URLs the original received, in order
func (r *Runtime) ProbeImports(ctx context.Context, prog *goja.Program, documentPath string, refs []string) (*ImportResult, error) {
	start := time.Now()
	h, err := r.call(ctx, prog, documentPath, "importScripts", refs...)
	if err != nil {
		return nil, err
	}
	return &ImportResult{
		Requested: refs,
		Loaded:    h.importedScripts(),
		Duration:  time.Since(start),
	}, nil
}

// call runs prog in a fresh host, then invokes the global fn with args
func (r *Runtime) call(ctx context.Context, prog *goja.Program, documentPath, fn string, args ...string) (*host, error) {
	vm := goja.New()

	h := &host{vm: vm, location: probeOrigin + documentPath}
	if err := h.install(); err != nil {
		return nil, err
	}

	stop := r.watch(ctx, vm)
	defer stop()

	if _, err := vm.RunProgram(prog); err != nil {
		return nil, r.classify(ctx, err)
	}

	f, ok := goja.AssertFunction(vm.Get(fn))
	if !ok {
		return nil, fmt.Errorf("shim removed %s", fn)
	}
	values := make([]goja.Value, len(args))
	for i, a := range args {
		values[i] = vm.ToValue(a)
	}
	if _, err := f(goja.Undefined(), values...); err != nil {
		return nil, r.classify(ctx, err)
	}
	return h, nil
}

// watch interrupts vm when the timeout passes or ctx ends
func (r *Runtime) watch(ctx context.Context, vm *goja.Runtime) func() {
	timer := time.NewTimer(r.timeout)
	done := make(chan struct{})

	go func() {
		select {
		case <-timer.C:
			vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	return func() {
		timer.Stop()
		close(done)
	}
}

func (r *Runtime) classify(ctx context.Context, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ctx.Err()
		}
		return faults.New(faults.KindTimeout, "sandbox.probe", "", err)
	}
	return fmt.Errorf("shim execution: %w", err)
}

// host provides the browser globals the shim touches
type host struct {
	vm       *goja.Runtime
	location string

	mu       sync.Mutex
	last     string
	imported []string
}

func (h *host) install() error {
	g := h.vm.GlobalObject()

	// Nothing of the embedding process is reachable from script
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := g.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	location := h.vm.NewObject()
	if err := location.Set("href", h.location); err != nil {
		return err
	}

	for name, value := range map[string]interface{}{
		"self":          g,
		"window":        g,
		"location":      location,
		"URL":           h.newURL,
		"fetch":         h.fetch,
		"importScripts": h.importScripts,
	} {
		if err := g.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// newURL implements new URL(input[, base]) with net/url resolution
func (h *host) newURL(call goja.ConstructorCall) *goja.Object {
	base := h.location
	if b := call.Argument(1); !goja.IsUndefined(b) && !goja.IsNull(b) {
		base = b.String()
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		panic(h.vm.NewTypeError("Invalid base URL: %s", base))
	}
	ref, err := url.Parse(call.Argument(0).String())
	if err != nil {
		panic(h.vm.NewTypeError("Invalid URL: %s", call.Argument(0).String()))
	}
	u := b.ResolveReference(ref)

	obj := call.This
	href := u.String()
	_ = obj.Set("href", href)
	_ = obj.Set("origin", u.Scheme+"://"+u.Host)
	_ = obj.Set("pathname", u.EscapedPath())
	_ = obj.Set("search", query(u))
	_ = obj.Set("toString", func() string { return href })
	return nil
}

// fetch records the resource it was asked for
func (h *host) fetch(call goja.FunctionCall) goja.Value {
	h.mu.Lock()
	h.last = call.Argument(0).String()
	h.mu.Unlock()
	return goja.Undefined()
}

// importScripts records the script URLs it was asked to load
func (h *host) importScripts(call goja.FunctionCall) goja.Value {
	urls := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		urls[i] = arg.String()
	}
	h.mu.Lock()
	h.imported = urls
	h.mu.Unlock()
	return goja.Undefined()
}

func (h *host) importedScripts() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.imported
}

func (h *host) fetched() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func query(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}
