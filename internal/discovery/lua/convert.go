// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// goToLua converts a Go value to a Lua value. Maps and slices convert
// recursively; unsupported types convert to nil so plugins never see
// opaque Go references.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case map[string]any:
		t := L.NewTable()
		for k, nested := range val {
			L.SetField(t, k, goToLua(L, nested))
		}
		return t
	case []any:
		t := L.NewTable()
		for _, nested := range val {
			t.Append(goToLua(L, nested))
		}
		return t
	case []string:
		t := L.NewTable()
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	default:
		return lua.LNil
	}
}

// luaToGo converts a Lua value to a Go value. Tables with sequential
// numeric keys become slices, everything else becomes a string-keyed map.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, luaToGo(val.RawGetInt(i)))
			}
			return out
		}
		out := make(map[string]any)
		val.ForEach(func(k, nested lua.LValue) {
			out[k.String()] = luaToGo(nested)
		})
		return out
	default:
		return nil
	}
}
