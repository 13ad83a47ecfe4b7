package plugin

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/zeusync/engine/internal/core/factory"
	"github.com/zeusync/engine/internal/core/models"
)

// ScriptEntryPoint is the global function a Lua module defines. It is called
// as register(add_class, add_type); add_class(name, defaults) declares a
// data-only component class.
const ScriptEntryPoint = "register"

// ScriptLoader loads Lua modules. Each module gets its own VM, closed with
// the module.
type ScriptLoader struct{}

func (ScriptLoader) Load(path string) (Module, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(ABIVersion))

	if err := vm.DoFile(path); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	fn, ok := vm.GetGlobal(ScriptEntryPoint).(*lua.LFunction)
	if !ok {
		vm.Close()
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, ScriptEntryPoint)
	}
	return &scriptModule{path: path, vm: vm, fn: fn}, nil
}

type scriptModule struct {
	path string
	vm   *lua.LState
	fn   *lua.LFunction
}

func (m *scriptModule) Name() string { return m.path }

func (m *scriptModule) Close() error {
	if m.vm != nil {
		m.vm.Close()
		m.vm = nil
	}
	return nil
}

func (m *scriptModule) EntryPoint() EntryPoint {
	return func(addClass AddClassFunc, addType AddTypeFunc) error {
		// errors from the callbacks, returned in place of the Lua traceback
		var regErr error

		luaAddClass := m.vm.NewFunction(func(L *lua.LState) int {
			name := L.CheckString(1)
			defaults := tableData(L.OptTable(2, L.NewTable()))
			kind := models.NewScriptKind(name, defaults)
			if err := addClass(name, kindCreator(kind)); err != nil {
				regErr = errors.Join(regErr, err)
				L.RaiseError("%s", err.Error())
			}
			return 0
		})
		luaAddType := m.vm.NewFunction(func(L *lua.LState) int {
			if err := addType(L.CheckString(1), L.CheckString(2)); err != nil {
				regErr = errors.Join(regErr, err)
				L.RaiseError("%s", err.Error())
			}
			return 0
		})

		err := m.vm.CallByParam(lua.P{
			Fn:      m.fn,
			NRet:    0,
			Protect: true,
		}, luaAddClass, luaAddType)
		if regErr != nil {
			return regErr
		}
		if err != nil {
			return fmt.Errorf("%s: %w", m.path, err)
		}
		return nil
	}
}

func kindCreator(kind models.ComponentKind) factory.Creator {
	return func(any, factory.Args) (any, error) { return kind, nil }
}

// tableData converts a Lua table to component data. Array-like tables become
// slices; functions and userdata are dropped.
func tableData(t *lua.LTable) models.Data {
	out := models.Data{}
	t.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		if val, keep := luaValue(v); keep {
			out[string(key)] = val
		}
	})
	return out
}

func luaValue(v lua.LValue) (any, bool) {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val), true
	case lua.LNumber:
		return float64(val), true
	case lua.LString:
		return string(val), true
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			items := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				if item, keep := luaValue(val.RawGetInt(i)); keep {
					items = append(items, item)
				}
			}
			return items, true
		}
		return map[string]any(tableData(val)), true
	default:
		return nil, false
	}
}
