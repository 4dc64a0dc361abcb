// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package lua

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

func TestStateFactory_SafeLibrariesAvailable(t *testing.T) {
	L, err := NewStateFactory().NewState(context.Background())
	require.NoError(t, err)
	defer L.Close()

	require.NoError(t, L.DoString(`
		assert(string.upper("ok") == "OK")
		assert(math.floor(1.9) == 1)
		assert(table.concat({"a", "b"}, ",") == "a,b")
	`))
}

func TestStateFactory_UnsafeLibrariesBlocked(t *testing.T) {
	L, err := NewStateFactory().NewState(context.Background())
	require.NoError(t, err)
	defer L.Close()

	for _, lib := range []string{"os", "io", "debug", "package"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(lib), "library %s must not be loaded", lib)
	}
}

func TestStateFactory_UnsafeBaseFunctionsBlocked(t *testing.T) {
	L, err := NewStateFactory().NewState(context.Background())
	require.NoError(t, err)
	defer L.Close()

	for _, fn := range []string{"dofile", "loadfile", "loadstring", "load"} {
		assert.Equal(t, lua.LNil, L.GetGlobal(fn), "function %s must be blocked", fn)
	}
}

func TestStateFactory_ContextPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	L, err := NewStateFactory().NewState(ctx)
	require.NoError(t, err)
	defer L.Close()

	cancel()
	assert.Error(t, L.DoString(`while true do end`))
}
