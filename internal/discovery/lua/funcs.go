// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Plugboard Contributors

package lua

import (
	"context"
	"log/slog"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/plugboard/plugboard/pkg/board"
)

// pushError pushes nil followed by an error string and returns 2. Standard
// pattern for returning errors from host functions.
func pushError(L *lua.LState, errMsg string) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(errMsg))
	return 2
}

// pushSuccess pushes a value followed by nil and returns 2.
func pushSuccess(L *lua.LState, value lua.LValue) int {
	L.Push(value)
	L.Push(lua.LNil)
	return 2
}

// registerHostFunctions installs the plugboard.* API into the plugin's
// state, bound to the runtime facade and the plugin's name.
func registerHostFunctions(inst *instance, rc board.Context, logger *slog.Logger) {
	L := inst.state
	mod := L.NewTable()

	L.SetField(mod, "plugin_name", lua.LString(inst.name))

	L.SetField(mod, "log", L.NewFunction(logFn(inst.name, logger)))
	L.SetField(mod, "emit", L.NewFunction(emitFn(rc)))
	L.SetField(mod, "on", L.NewFunction(onFn(inst, rc)))
	L.SetField(mod, "register_action", L.NewFunction(registerActionFn(inst, rc)))
	L.SetField(mod, "register_screen", L.NewFunction(registerScreenFn(rc)))
	L.SetField(mod, "host", L.NewFunction(hostFn(rc)))

	L.SetGlobal("plugboard", mod)
}

func logFn(pluginName string, logger *slog.Logger) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		message := L.CheckString(2)

		plog := logger.With("plugin", pluginName)
		switch level {
		case "debug":
			plog.Debug(message)
		case "warn":
			plog.Warn(message)
		case "error":
			plog.Error(message)
		default:
			plog.Info(message)
		}
		return 0
	}
}

func emitFn(rc board.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		event := L.CheckString(1)
		var payload any
		if L.GetTop() >= 2 {
			payload = luaToGo(L.Get(2))
		}
		rc.Events().Emit(event, payload)
		return 0
	}
}

// onFn registers an additional event handler beyond the manifest's
// declared subscriptions. The handler function is held by the subscription
// and called on the plugin's own state.
func onFn(inst *instance, rc board.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		event := L.CheckString(1)
		fn := L.CheckFunction(2)

		handler := func(_ context.Context, payload any) error {
			return inst.call(func(L *lua.LState) error {
				return L.CallByParam(lua.P{
					Fn:      fn,
					NRet:    0,
					Protect: true,
				}, goToLua(L, payload))
			})
		}

		if _, err := rc.Events().On(event, handler); err != nil {
			return pushError(L, err.Error())
		}
		return pushSuccess(L, lua.LTrue)
	}
}

// registerActionFn registers an action whose handler runs the given Lua
// function. An optional third argument is an options table supporting
// timeout_ms.
func registerActionFn(inst *instance, rc board.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		id := L.CheckString(1)
		fn := L.CheckFunction(2)

		var timeout time.Duration
		if L.GetTop() >= 3 {
			opts := L.CheckTable(3)
			if ms, ok := opts.RawGetString("timeout_ms").(lua.LNumber); ok {
				timeout = time.Duration(float64(ms)) * time.Millisecond
			}
		}

		handler := func(_ context.Context, params map[string]any, _ board.Context) (any, error) {
			var result any
			err := inst.call(func(L *lua.LState) error {
				if err := L.CallByParam(lua.P{
					Fn:      fn,
					NRet:    1,
					Protect: true,
				}, goToLua(L, params)); err != nil {
					return err
				}
				ret := L.Get(-1)
				L.Pop(1)
				result = luaToGo(ret)
				return nil
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		}

		if _, err := rc.Actions().Register(board.Action{
			ID:      id,
			Handler: handler,
			Timeout: timeout,
		}); err != nil {
			return pushError(L, err.Error())
		}
		return pushSuccess(L, lua.LTrue)
	}
}

func registerScreenFn(rc board.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		id := L.CheckString(1)
		title := L.CheckString(2)

		var component any
		if L.GetTop() >= 3 {
			component = luaToGo(L.Get(3))
		}

		if err := rc.Screens().Register(board.Screen{
			ID:        id,
			Title:     title,
			Component: component,
		}); err != nil {
			return pushError(L, err.Error())
		}
		return pushSuccess(L, lua.LTrue)
	}
}

func hostFn(rc board.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		key := L.CheckString(1)
		value, ok := rc.Host().Value(key)
		if !ok {
			return pushError(L, "no host value for key: "+key)
		}
		return pushSuccess(L, goToLua(L, value))
	}
}
