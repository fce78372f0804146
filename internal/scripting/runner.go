package scripting

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrInstructionLimit is returned when a script runs past its opcode limit.
var ErrInstructionLimit = errors.New("scripting: instruction limit exceeded")

// ErrScript wraps Lua syntax and runtime errors.
var ErrScript = errors.New("scripting: script error")

// Module is a table of Go functions exposed to scripts as a global.
type Module struct {
	Name  string
	Funcs map[string]lua.LGFunction
}

// Runner executes scripts, each in a fresh sandbox.
//
// A Runner holds no Lua state between runs and is safe for concurrent use.
type Runner struct {
	instLimit int
	logger    *zap.Logger
}

// NewRunner creates a Runner.
//
// Precondition: logger must be non-nil; instLimit >= 0, where 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil Runner.
func NewRunner(instLimit int, logger *zap.Logger) *Runner {
	if logger == nil {
		panic("scripting.NewRunner: logger must not be nil")
	}
	return &Runner{instLimit: instLimit, logger: logger}
}

// RunFile executes the Lua file at path with the given modules registered.
//
// Postcondition: Returns nil when the script ran to completion; otherwise an
// error wrapping ErrInstructionLimit, ctx.Err(), or ErrScript.
func (r *Runner) RunFile(ctx context.Context, path string, modules ...Module) error {
	return r.run(ctx, filepath.Base(path), func(L *lua.LState) error { return L.DoFile(path) }, modules)
}

// RunString executes chunk, labelled name in logs and errors, with the given
// modules registered.
//
// Postcondition: Same as RunFile.
func (r *Runner) RunString(ctx context.Context, name, chunk string, modules ...Module) error {
	return r.run(ctx, name, func(L *lua.LState) error { return L.DoString(chunk) }, modules)
}

func (r *Runner) run(ctx context.Context, name string, exec func(*lua.LState) error, modules []Module) error {
	L, cctx, cancel := newSandbox(ctx, r.instLimit)
	defer L.Close()
	defer cancel()

	logger := r.logger.With(zap.String("script", name))
	RegisterModules(L, logger, modules...)

	err := exec(L)
	if err == nil {
		return nil
	}
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("scripting: running %q: %w", name, ctx.Err())
	case cctx.exhausted():
		return fmt.Errorf("%w: %q after %d opcodes", ErrInstructionLimit, name, r.limit())
	default:
		logger.Warn("scripting: Lua error", zap.Error(err))
		return fmt.Errorf("%w: %q: %v", ErrScript, name, err)
	}
}

func (r *Runner) limit() int {
	if r.instLimit <= 0 {
		return DefaultInstructionLimit
	}
	return r.instLimit
}
