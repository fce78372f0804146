package problem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/blocks/internal/scripting"
)

// LuaSource runs Lua problem generators in the scripting sandbox. A script
// describes its problem through the problem module:
//
//	problem.name("tower-10")
//	for i = 1, 10 do problem.object("b" .. i) end
//	problem.ontable("b1")
//	problem.on("b2", "b1")
//	problem.goal_on("b1", "b2")
type LuaSource struct {
	runner *scripting.Runner
}

// NewLuaSource returns a LuaSource that executes scripts with runner.
//
// Precondition: runner must be non-nil.
func NewLuaSource(runner *scripting.Runner) *LuaSource {
	if runner == nil {
		panic("problem.NewLuaSource: runner must not be nil")
	}
	return &LuaSource{runner: runner}
}

// Read implements Source.
func (s *LuaSource) Read(ctx context.Context, path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrRead, err)}
	}
	p, err := s.Generate(ctx, filepath.Base(path), string(data))
	if err != nil {
		return nil, withPath(path, err)
	}
	return p, nil
}

// Generate runs the generator chunk and collects the problem it declares.
//
// Postcondition: Returns a non-nil Problem, or a *LoadError wrapping ErrSyntax
// for script failures, or the context error when ctx ends first.
func (s *LuaSource) Generate(ctx context.Context, name, chunk string) (*Problem, error) {
	p := &Problem{}
	literal := func(pred string, n int, into *[]Predicate) lua.LGFunction {
		return func(L *lua.LState) int {
			args := make([]string, n)
			for i := range args {
				args[i] = L.CheckString(i + 1)
			}
			*into = append(*into, Predicate{Name: pred, Args: args})
			return 0
		}
	}
	mod := scripting.Module{
		Name: "problem",
		Funcs: map[string]lua.LGFunction{
			"name": func(L *lua.LState) int {
				p.Name = L.CheckString(1)
				return 0
			},
			"object": func(L *lua.LState) int {
				for i := 1; i <= L.GetTop(); i++ {
					p.Objects = append(p.Objects, L.CheckString(i))
				}
				return 0
			},
			"ontable": literal(PredOnTable, 1, &p.Init),
			"on":      literal(PredOn, 2, &p.Init),
			"goal_on": literal(PredOn, 2, &p.Goal),
		},
	}
	if err := s.runner.RunString(ctx, name, chunk, mod); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &LoadError{Err: fmt.Errorf("%w: %w", ErrSyntax, err)}
	}
	return p, nil
}
