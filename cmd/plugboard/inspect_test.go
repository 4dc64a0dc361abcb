package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeLuaPlugin(t *testing.T, root, name, script string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := "name: " + name + "\nversion: 1.0.0\nentry: main.lua\n"
	if err := os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.lua"), []byte(script), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestInspect_Properties(t *testing.T) {
	cmd := newInspectCmd()

	if cmd.Use != "inspect" {
		t.Errorf("Use = %q, want %q", cmd.Use, "inspect")
	}
	if cmd.Flags().Lookup("filter") == nil {
		t.Error("missing --filter flag")
	}
	if cmd.Flags().Lookup("json") == nil {
		t.Error("missing --json flag")
	}
}

func TestInspect_ReportsContributions(t *testing.T) {
	root := t.TempDir()
	writeLuaPlugin(t, root, "greeter", `
		plugboard.register_action("greeter:hello", function(params) return "hi" end)
		plugboard.register_screen("greeter:main", "Greeter")
	`)

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"inspect", "--plugins.paths", root})

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	output := out.String()
	for _, phrase := range []string{"greeter 1.0.0", "greeter:hello", "greeter:main: Greeter"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q:\n%s", phrase, output)
		}
	}
}

func TestInspect_JSONOutput(t *testing.T) {
	root := t.TempDir()
	writeLuaPlugin(t, root, "greeter", `
		plugboard.register_action("greeter:hello", function(params) return "hi" end)
	`)

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"inspect", "--plugins.paths", root, "--json"})

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var report inspectReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}
	if len(report.Plugins) != 1 || report.Plugins[0].Name != "greeter" {
		t.Errorf("unexpected plugins: %+v", report.Plugins)
	}
	if len(report.Actions) != 1 || report.Actions[0].ID != "greeter:hello" {
		t.Errorf("unexpected actions: %+v", report.Actions)
	}
}

func TestInspect_Filter(t *testing.T) {
	root := t.TempDir()
	writeLuaPlugin(t, root, "greeter", `
		plugboard.register_action("greeter:hello", function(params) return "hi" end)
		plugboard.register_action("greeter:bye", function(params) return "bye" end)
	`)

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"inspect", "--plugins.paths", root, "--json", "--filter", "greeter:hello"})

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var report inspectReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if len(report.Actions) != 1 || report.Actions[0].ID != "greeter:hello" {
		t.Errorf("filter should keep only greeter:hello, got %+v", report.Actions)
	}
	if len(report.Plugins) != 0 {
		t.Errorf("plugin name should not match the filter, got %+v", report.Plugins)
	}
}

func TestInspect_InvalidFilter(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"inspect", "--plugins.paths", t.TempDir(), "--filter", "[unclosed"})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() should fail for an invalid filter glob")
	}
}
