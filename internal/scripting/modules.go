package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the log module and every given module as global
// tables in L. A module named "log" replaces the built-in one.
//
// Precondition: L must be from NewSandboxedState; logger must be non-nil.
// Postcondition: Each module name is a global table in L.
func RegisterModules(L *lua.LState, logger *zap.Logger, modules ...Module) {
	all := append([]Module{logModule(logger)}, modules...)
	for _, m := range all {
		tbl := L.NewTable()
		L.SetFuncs(tbl, m.Funcs)
		L.SetGlobal(m.Name, tbl)
	}
}

// logModule routes log.debug/info/warn(msg) to logger.
func logModule(logger *zap.Logger) Module {
	at := func(emit func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			emit(L.CheckString(1))
			return 0
		}
	}
	return Module{
		Name: "log",
		Funcs: map[string]lua.LGFunction{
			"debug": at(logger.Debug),
			"info":  at(logger.Info),
			"warn":  at(logger.Warn),
		},
	}
}
