// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package lua

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/plugboard/plugboard/internal/discovery"
	"github.com/plugboard/plugboard/pkg/board"
)

// Compile-time interface check.
var _ discovery.Host = (*Host)(nil)

// instance is a live Lua state for an initialized plugin. gopher-lua
// states are not safe for concurrent use, so every call into the state
// goes through call, which serializes goroutines while letting the
// goroutine already inside the state re-enter it.
type instance struct {
	name  string
	state *lua.LState
	lock  stateLock
}

// call runs f with exclusive access to the instance's state. A script
// that emits an event it also subscribes to fans out synchronously on
// the goroutine that is already executing inside the state; call detects
// that and runs f directly instead of deadlocking on the guard.
func (in *instance) call(f func(*lua.LState) error) error {
	if in.lock.lock() {
		defer in.lock.unlock()
	}
	return f(in.state)
}

// stateLock is a mutex that remembers the goroutine holding it so
// reentrant acquisitions on that goroutine become no-ops.
type stateLock struct {
	mu    sync.Mutex
	owner atomic.Int64
}

// lock acquires the guard unless the calling goroutine already holds it.
// The return value reports whether the caller owns the acquisition and
// must unlock.
func (sl *stateLock) lock() bool {
	id := goroutineID()
	if id != 0 && sl.owner.Load() == id {
		return false
	}
	sl.mu.Lock()
	sl.owner.Store(id)
	return true
}

func (sl *stateLock) unlock() {
	sl.owner.Store(0)
	sl.mu.Unlock()
}

// goroutineID extracts the current goroutine's id from the stack header
// ("goroutine N [status]:"). The runtime offers no direct accessor.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	i := strings.IndexByte(s, ' ')
	if i <= 0 {
		return 0
	}
	id, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Host builds runnable plugin descriptors from Lua plugin directories. A
// plugin's state is created during setup, kept alive while the plugin's
// handlers are registered, and closed during dispose.
type Host struct {
	factory *StateFactory
	logger  *slog.Logger

	mu        sync.Mutex
	instances map[string]*instance
}

// Option configures the Host.
type Option func(*Host)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// NewHost creates a Lua plugin host.
func NewHost(opts ...Option) *Host {
	h := &Host{
		factory:   NewStateFactory(),
		logger:    slog.Default(),
		instances: make(map[string]*instance),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Build reads the plugin's entry script and wraps it in a descriptor whose
// setup and dispose drive the Lua state. The script is read eagerly so
// missing entries fail at load time, not at initialization.
func (h *Host) Build(dp *discovery.DiscoveredPlugin) (board.Plugin, error) {
	m := dp.Manifest

	entryPath := filepath.Join(dp.Dir, m.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return board.Plugin{}, oops.In("lua").
			With("plugin", m.Name).
			With("path", entryPath).
			Hint("failed to read entry file").
			Wrap(err)
	}

	return board.Plugin{
		Name:         m.Name,
		Version:      m.Version,
		Dependencies: m.DependencyNames(),
		Setup: func(ctx context.Context, rc board.Context) error {
			return h.setup(ctx, rc, m, string(code))
		},
		Dispose: func(ctx context.Context, rc board.Context) error {
			return h.dispose(ctx, m.Name)
		},
	}, nil
}

// setup creates the plugin's sandboxed state, installs the plugboard host
// functions, runs the script, wires manifest event subscriptions, and
// finally calls the script's setup() function if it defines one.
func (h *Host) setup(ctx context.Context, rc board.Context, m *discovery.Manifest, code string) error {
	L, err := h.factory.NewState(ctx)
	if err != nil {
		return oops.In("lua").With("plugin", m.Name).Hint("failed to create state").Wrap(err)
	}

	inst := &instance{name: m.Name, state: L}
	registerHostFunctions(inst, rc, h.logger)

	if err := inst.call(func(L *lua.LState) error {
		return L.DoString(code)
	}); err != nil {
		L.Close()
		return oops.In("lua").With("plugin", m.Name).With("entry", m.Entry).Hint("script error").Wrap(err)
	}

	if err := h.subscribeEvents(inst, rc, m); err != nil {
		L.Close()
		return err
	}

	if err := inst.call(func(L *lua.LState) error {
		setupFn := L.GetGlobal("setup")
		if setupFn.Type() != lua.LTFunction {
			return nil
		}
		return L.CallByParam(lua.P{
			Fn:      setupFn,
			NRet:    0,
			Protect: true,
		})
	}); err != nil {
		L.Close()
		return oops.In("lua").With("plugin", m.Name).With("function", "setup").Wrap(err)
	}

	h.mu.Lock()
	h.instances[m.Name] = inst
	h.mu.Unlock()

	return nil
}

// subscribeEvents registers the manifest's declared event subscriptions,
// delivering each matching event to the script's on_event(event, payload)
// function. Names containing glob metacharacters subscribe as patterns.
func (h *Host) subscribeEvents(inst *instance, rc board.Context, m *discovery.Manifest) error {
	if len(m.Events) == 0 {
		return nil
	}

	if inst.state.GetGlobal("on_event").Type() != lua.LTFunction {
		h.logger.Warn("plugin declares event subscriptions but defines no on_event function",
			"plugin", m.Name,
			"events", m.Events)
		return nil
	}

	for _, event := range m.Events {
		handler := h.eventHandler(inst, event)

		var err error
		if strings.ContainsAny(event, "*?[") {
			_, err = rc.Events().OnPattern(event, handler)
		} else {
			_, err = rc.Events().On(event, handler)
		}
		if err != nil {
			return oops.In("lua").With("plugin", m.Name).With("event", event).Wrap(err)
		}
	}

	return nil
}

// eventHandler adapts the bus handler signature onto the script's
// on_event function.
func (h *Host) eventHandler(inst *instance, event string) board.EventHandler {
	return func(_ context.Context, payload any) error {
		return inst.call(func(L *lua.LState) error {
			fn := L.GetGlobal("on_event")
			if fn.Type() != lua.LTFunction {
				return nil
			}
			return L.CallByParam(lua.P{
				Fn:      fn,
				NRet:    0,
				Protect: true,
			}, lua.LString(event), goToLua(L, payload))
		})
	}
}

// dispose calls the script's dispose() function if it defines one, then
// closes the state.
func (h *Host) dispose(_ context.Context, name string) error {
	h.mu.Lock()
	inst, ok := h.instances[name]
	delete(h.instances, name)
	h.mu.Unlock()

	if !ok {
		return nil
	}

	defer inst.state.Close()

	if err := inst.call(func(L *lua.LState) error {
		fn := L.GetGlobal("dispose")
		if fn.Type() != lua.LTFunction {
			return nil
		}
		return L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		})
	}); err != nil {
		return oops.In("lua").With("plugin", name).With("function", "dispose").Wrap(err)
	}
	return nil
}
