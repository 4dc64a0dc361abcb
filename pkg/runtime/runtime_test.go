// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package runtime

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugboard/plugboard/pkg/board"
)

func testPlugin(name string, setup board.SetupFunc) board.Plugin {
	if setup == nil {
		setup = func(context.Context, board.Context) error { return nil }
	}
	return board.Plugin{Name: name, Version: "1.0.0", Setup: setup}
}

func TestNew(t *testing.T) {
	r := New()

	assert.Equal(t, StateUninitialized, r.State())
	assert.Nil(t, r.Context())
	assert.NotEmpty(t, r.InstanceID())

	other := New()
	assert.NotEqual(t, r.InstanceID(), other.InstanceID())
}

func TestRuntime_RegisterPlugin(t *testing.T) {
	r := New()

	var vErr *board.ValidationError
	err := r.RegisterPlugin(board.Plugin{Version: "1.0.0"})
	require.ErrorAs(t, err, &vErr)

	require.NoError(t, r.RegisterPlugin(testPlugin("a", nil)))

	var dErr *board.DuplicateError
	err = r.RegisterPlugin(testPlugin("a", nil))
	require.ErrorAs(t, err, &dErr)
}

func TestRuntime_RegisterPluginAfterInitialize(t *testing.T) {
	r := New()
	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())

	err := r.RegisterPlugin(testPlugin("late", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime is initialized")
}

func TestRuntime_InitializeRunsSetupInOrder(t *testing.T) {
	r := New()

	var order []string
	record := func(name string) board.SetupFunc {
		return func(_ context.Context, rc board.Context) error {
			require.NotNil(t, rc)
			order = append(order, name)
			return nil
		}
	}
	require.NoError(t, r.RegisterPlugin(testPlugin("a", record("a"))))
	require.NoError(t, r.RegisterPlugin(testPlugin("b", record("b"))))

	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())

	assert.Equal(t, StateInitialized, r.State())
	assert.Equal(t, []string{"a", "b"}, order)
	assert.NotNil(t, r.Context())
}

func TestRuntime_InitializeTwice(t *testing.T) {
	r := New()
	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())

	err := r.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime is initialized")
}

func TestRuntime_InitializeFailureRollsBack(t *testing.T) {
	r := New()

	var disposed []string
	good := testPlugin("good", nil)
	good.Dispose = func(_ context.Context, _ board.Context) error {
		disposed = append(disposed, "good")
		return nil
	}
	require.NoError(t, r.RegisterPlugin(good))
	require.NoError(t, r.RegisterPlugin(testPlugin("bad", func(_ context.Context, _ board.Context) error {
		return errors.New("setup exploded")
	})))

	err := r.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup exploded")

	// Rollback ran and the runtime is back where it started.
	assert.Equal(t, []string{"good"}, disposed)
	assert.Equal(t, StateUninitialized, r.State())
	assert.Nil(t, r.Context())
}

func TestRuntime_DependentPluginSeesDependencyState(t *testing.T) {
	r := New()

	require.NoError(t, r.RegisterPlugin(testPlugin("provider", func(_ context.Context, rc board.Context) error {
		_, err := rc.Actions().Register(board.Action{
			ID: "provider:serve",
			Handler: func(_ context.Context, _ map[string]any, _ board.Context) (any, error) {
				return "served", nil
			},
		})
		return err
	})))

	consumer := testPlugin("consumer", func(ctx context.Context, rc board.Context) error {
		result, err := rc.Actions().Run(ctx, "provider:serve", nil)
		if err != nil {
			return err
		}
		if result != "served" {
			return errors.New("unexpected result")
		}
		return nil
	})
	consumer.Dependencies = []string{"provider"}
	require.NoError(t, r.RegisterPlugin(consumer))

	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())
}

func TestRuntime_InitializedEvent(t *testing.T) {
	r := New()

	var payload any
	require.NoError(t, r.RegisterPlugin(testPlugin("listener", func(_ context.Context, rc board.Context) error {
		_, err := rc.Events().On(EventInitialized, func(_ context.Context, p any) error {
			payload = p
			return nil
		})
		return err
	})))

	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())

	// The event fires after all setups complete, carrying the facade.
	assert.Equal(t, r.Context(), payload)
}

func TestRuntime_ShutdownEventAndDisposeOrder(t *testing.T) {
	r := New()

	var sequence []string
	for _, name := range []string{"a", "b"} {
		name := name
		p := testPlugin(name, func(_ context.Context, rc board.Context) error {
			if name == "a" {
				_, err := rc.Events().On(EventShutdown, func(_ context.Context, _ any) error {
					sequence = append(sequence, "event")
					return nil
				})
				return err
			}
			return nil
		})
		p.Dispose = func(_ context.Context, _ board.Context) error {
			sequence = append(sequence, "dispose:"+name)
			return nil
		}
		require.NoError(t, r.RegisterPlugin(p))
	}

	require.NoError(t, r.Initialize(context.Background()))
	r.Shutdown(context.Background())

	// The shutdown event fires while plugins are still live, then dispose
	// runs in reverse setup order.
	assert.Equal(t, []string{"event", "dispose:b", "dispose:a"}, sequence)
	assert.Equal(t, StateShutdown, r.State())
}

func TestRuntime_ShutdownWhenUninitializedIsNoOp(t *testing.T) {
	r := New()
	r.Shutdown(context.Background())
	assert.Equal(t, StateUninitialized, r.State())
}

func TestRuntime_ShutdownTwiceIsNoOp(t *testing.T) {
	r := New()
	require.NoError(t, r.Initialize(context.Background()))

	r.Shutdown(context.Background())
	r.Shutdown(context.Background())
	assert.Equal(t, StateShutdown, r.State())
}

func TestRuntime_TwoRuntimesAreIsolated(t *testing.T) {
	r1 := New(WithHostContext(map[string]any{"owner": "first"}))
	r2 := New(WithHostContext(map[string]any{"owner": "second"}))

	require.NoError(t, r1.RegisterPlugin(testPlugin("shared", func(_ context.Context, rc board.Context) error {
		_, err := rc.Actions().Register(board.Action{
			ID: "shared:who",
			Handler: func(_ context.Context, _ map[string]any, rc board.Context) (any, error) {
				v, _ := rc.Host().Value("owner")
				return v, nil
			},
		})
		return err
	})))
	require.NoError(t, r1.Initialize(context.Background()))
	defer r1.Shutdown(context.Background())
	require.NoError(t, r2.Initialize(context.Background()))
	defer r2.Shutdown(context.Background())

	result, err := r1.Context().Actions().Run(context.Background(), "shared:who", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", result)

	// The action registered on r1 does not exist on r2.
	_, err = r2.Context().Actions().Run(context.Background(), "shared:who", nil)
	var nfErr *board.NotFoundError
	assert.ErrorAs(t, err, &nfErr)

	v, ok := r2.Context().Host().Value("owner")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestRuntime_HostContextCopiedAtInitialize(t *testing.T) {
	hc := map[string]any{"stable": "yes"}
	r := New(WithHostContext(hc))
	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())

	hc["stable"] = "mutated"
	hc["added"] = true

	v, ok := r.Context().Host().Value("stable")
	require.True(t, ok)
	assert.Equal(t, "yes", v)

	_, ok = r.Context().Host().Value("added")
	assert.False(t, ok)
	assert.Equal(t, []string{"stable"}, r.Context().Host().Keys())
}

func TestRuntime_ConfigExposedToPlugins(t *testing.T) {
	type appConfig struct{ Env string }
	cfg := &appConfig{Env: "test"}

	r := New(WithConfig(cfg))
	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())

	assert.Same(t, cfg, r.Context().Config())
}

func TestRuntime_DiscoversLuaPlugins(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "greeter")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(`
name: greeter
version: 1.0.0
entry: main.lua
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.lua"), []byte(`
		plugboard.register_action("greeter:hello", function(params)
			return "hello, " .. params.name
		end)
	`), 0o600))

	r := New(WithPluginPaths(root))
	require.NoError(t, r.Initialize(context.Background()))
	defer r.Shutdown(context.Background())

	assert.Equal(t, []string{"greeter"}, r.Context().Plugins().List())

	result, err := r.Context().Actions().Run(context.Background(), "greeter:hello", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello, world", result)
}

func TestRuntime_DiscoveryFailureAbortsInitialize(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a", "b"} {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		other := "b"
		if name == "b" {
			other = "a"
		}
		manifest := "name: " + name + "\nversion: 1.0.0\nentry: main.lua\ndependencies:\n  - name: " + other + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(manifest), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.lua"), []byte(""), 0o600))
	}

	r := New(WithPluginPaths(root))
	err := r.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin discovery failed")
	assert.Equal(t, StateUninitialized, r.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "initialized", StateInitialized.String())
	assert.Equal(t, "shutting-down", StateShuttingDown.String())
	assert.Equal(t, "shutdown", StateShutdown.String())
	assert.Equal(t, "unknown", State(99).String())
}
