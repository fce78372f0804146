package problem

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/blocks/internal/scripting"
)

// Loader dispatches problem files to a Source by extension and builds them.
type Loader struct {
	sources map[string]Source
	logger  *zap.Logger
}

// NewLoader creates a Loader with the PDDL, YAML and Lua sources registered.
//
// Precondition: runner and logger must be non-nil.
// Postcondition: Returns a Loader handling .pddl, .yaml, .yml and .lua files.
func NewLoader(runner *scripting.Runner, logger *zap.Logger) *Loader {
	if logger == nil {
		panic("problem.NewLoader: logger must not be nil")
	}
	l := &Loader{sources: make(map[string]Source), logger: logger}
	l.Register(".pddl", NewPDDLSource())
	yml := NewYAMLSource()
	l.Register(".yaml", yml)
	l.Register(".yml", yml)
	l.Register(".lua", NewLuaSource(runner))
	return l
}

// Register installs src for files with extension ext, replacing any previous
// Source for it.
func (l *Loader) Register(ext string, src Source) {
	l.sources[strings.ToLower(ext)] = src
}

// Extensions returns the handled extensions in sorted order.
func (l *Loader) Extensions() []string {
	out := make([]string, 0, len(l.sources))
	for ext := range l.sources {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Load reads and builds the problem at path.
//
// Postcondition: Returns a non-nil Instance, or an error that is a *LoadError
// unless ctx ended first.
func (l *Loader) Load(ctx context.Context, path string) (*Instance, error) {
	start := time.Now()
	ext := strings.ToLower(filepath.Ext(path))
	src, ok := l.sources[ext]
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedFormat, ext, strings.Join(l.Extensions(), ", "))}
	}
	p, err := src.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	in, err := Build(p)
	if err != nil {
		return nil, withPath(path, err)
	}
	l.logger.Debug("problem: loaded",
		zap.String("path", path),
		zap.String("problem", in.Name),
		zap.Int("blocks", len(in.Names)),
		zap.Int("goal_pairs", len(in.Goal.Pairs())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return in, nil
}

// Load reads and builds the problem at path with a default Loader.
func Load(path string) (*Instance, error) {
	logger := zap.NewNop()
	return NewLoader(scripting.NewRunner(0, logger), logger).Load(context.Background(), path)
}
