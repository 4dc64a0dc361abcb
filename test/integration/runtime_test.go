// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"

	"github.com/plugboard/plugboard/pkg/board"
	"github.com/plugboard/plugboard/pkg/runtime"
)

// echoPluginDir points at the echo example plugin shipped with the repo.
func echoPluginDir() string {
	return filepath.Join("..", "..", "plugins", "echo")
}

var _ = Describe("Runtime with Lua plugins", func() {
	var (
		ctx context.Context
		rt  *runtime.Runtime
	)

	BeforeEach(func() {
		ctx = context.Background()
		rt = runtime.New(
			runtime.WithPluginPackages(echoPluginDir()),
			runtime.WithHostContext(map[string]any{"app_name": "integration"}),
		)
		Expect(rt.Initialize(ctx)).To(Succeed())
	})

	AfterEach(func() {
		rt.Shutdown(ctx)
	})

	It("loads the echo plugin from its package directory", func() {
		Expect(rt.Context().Plugins().List()).To(ContainElement("echo"))

		def := rt.Context().Introspect().PluginDefinition("echo")
		Expect(def).NotTo(BeNil())
		Expect(def.Version).To(Equal("1.0.0"))
	})

	It("runs the echo action end to end", func() {
		result, err := rt.Context().Actions().Run(ctx, "echo:run", map[string]any{"msg": "hello"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(map[string]any{"msg": "hello"}))
	})

	It("registers the echo status screen", func() {
		screen, ok := rt.Context().Screens().Get("echo:status")
		Expect(ok).To(BeTrue())
		Expect(screen.Title).To(Equal("Echo Status"))
	})

	It("answers demo:ping with demo:pong", func() {
		var (
			mu       sync.Mutex
			payloads []any
		)
		_, err := rt.Context().Events().On("demo:pong", func(_ context.Context, payload any) error {
			mu.Lock()
			defer mu.Unlock()
			payloads = append(payloads, payload)
			return nil
		})
		Expect(err).NotTo(HaveOccurred())

		rt.Context().Events().Emit("demo:ping", "marco")

		mu.Lock()
		defer mu.Unlock()
		Expect(payloads).To(Equal([]any{"marco"}))
	})
})

var _ = Describe("Runtime lifecycle", func() {
	It("walks initialize and shutdown with Go and Lua plugins together", func() {
		ctx := context.Background()

		var order []string
		rt := runtime.New(runtime.WithPluginPackages(echoPluginDir()))
		Expect(rt.RegisterPlugin(board.Plugin{
			Name:    "native",
			Version: "1.0.0",
			Setup: func(_ context.Context, rc board.Context) error {
				order = append(order, "setup")
				_, err := rc.Events().On(runtime.EventShutdown, func(context.Context, any) error {
					order = append(order, "shutdown-event")
					return nil
				})
				return err
			},
			Dispose: func(_ context.Context, _ board.Context) error {
				order = append(order, "dispose")
				return nil
			},
		})).To(Succeed())

		Expect(rt.Initialize(ctx)).To(Succeed())
		Expect(rt.State()).To(Equal(runtime.StateInitialized))

		// Lua plugins load before pre-registered Go plugins, so both
		// coexist in one catalog.
		Expect(rt.Context().Plugins().List()).To(Equal([]string{"echo", "native"}))

		rt.Shutdown(ctx)
		Expect(rt.State()).To(Equal(runtime.StateShutdown))
		Expect(order).To(Equal([]string{"setup", "shutdown-event", "dispose"}))
	})

	It("records action metrics when performance monitoring is on", func() {
		ctx := context.Background()
		reg := prometheus.NewRegistry()

		rt := runtime.New(
			runtime.WithPluginPackages(echoPluginDir()),
			runtime.WithPerformanceMonitoring(true),
			runtime.WithPrometheusRegisterer(reg),
		)
		Expect(rt.Initialize(ctx)).To(Succeed())
		defer rt.Shutdown(ctx)

		_, err := rt.Context().Actions().Run(ctx, "echo:run", map[string]any{"n": 1})
		Expect(err).NotTo(HaveOccurred())

		families, err := reg.Gather()
		Expect(err).NotTo(HaveOccurred())

		var runs float64
		for _, f := range families {
			if f.GetName() == "plugboard_action_runs_total" {
				for _, m := range f.GetMetric() {
					runs += m.GetCounter().GetValue()
				}
			}
		}
		Expect(runs).To(BeNumerically(">=", 1), "the echo:run invocation should be counted")
	})
})

var _ = Describe("Discovery from scanned paths", func() {
	It("orders dependent plugins regardless of directory order", func() {
		ctx := context.Background()
		root := GinkgoT().TempDir()

		write := func(dir, manifest, script string) {
			full := filepath.Join(root, dir)
			Expect(os.MkdirAll(full, 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(full, "plugin.yaml"), []byte(manifest), 0o600)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(full, "main.lua"), []byte(script), 0o600)).To(Succeed())
		}

		// Directory order puts the dependent first; the loader reorders.
		write("aa-consumer", `
name: consumer
version: 1.0.0
entry: main.lua
dependencies:
  - name: provider
    constraint: ">=1.0.0"
`, `
			function setup()
				local result, err = plugboard.host("ready")
				plugboard.emit("consumer:started", result)
			end
		`)
		write("zz-provider", "name: provider\nversion: 1.2.0\nentry: main.lua\n", "")

		rt := runtime.New(
			runtime.WithPluginPaths(root),
			runtime.WithHostContext(map[string]any{"ready": true}),
		)
		Expect(rt.Initialize(ctx)).To(Succeed())
		defer rt.Shutdown(ctx)

		Expect(rt.Context().Plugins().List()).To(Equal([]string{"provider", "consumer"}))
	})
})
