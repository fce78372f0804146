// Package problem converts external problem descriptions into blocks-world
// start states and goals.
//
// Every Source produces the same intermediate Problem; Build assigns block
// identifiers and constructs the State and Goal.
package problem

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/blocks/internal/blocks"
)

// Sentinel errors wrapped by LoadError.
var (
	// ErrRead is returned when the problem file cannot be read.
	ErrRead = errors.New("unreadable problem source")
	// ErrSyntax is returned for malformed problem text or wrong predicate arity.
	ErrSyntax = errors.New("malformed problem")
	// ErrUndeclaredObject is returned when a predicate names an object that
	// is not in the objects section.
	ErrUndeclaredObject = errors.New("undeclared object")
	// ErrUnsupportedPredicate is returned for predicates outside on/ontable.
	ErrUnsupportedPredicate = errors.New("unsupported predicate")
	// ErrUnsupportedFormat is returned when no Source handles the file extension.
	ErrUnsupportedFormat = errors.New("unsupported problem format")
	// ErrInvalidGoal is returned when the goal pairs are cyclic or conflicting.
	ErrInvalidGoal = blocks.ErrInvalidGoal
)

// Predicate names.
const (
	PredOn      = "on"
	PredOnTable = "ontable"
)

// ignoredInit lists initial predicates that are derivable from on/ontable.
var ignoredInit = map[string]bool{
	"clear":     true,
	"handempty": true,
	"arm-empty": true,
	"armempty":  true,
}

// Predicate is a boolean literal such as on(a, b).
type Predicate struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args"`
}

// String renders p in PDDL form.
func (p Predicate) String() string {
	if len(p.Args) == 0 {
		return "(" + p.Name + ")"
	}
	return "(" + p.Name + " " + strings.Join(p.Args, " ") + ")"
}

// Problem is the format-independent form every Source produces.
type Problem struct {
	Name    string
	Objects []string
	Init    []Predicate
	Goal    []Predicate
}

// LoadError describes why a problem could not be loaded.
type LoadError struct {
	// Path is the problem file, when known.
	Path string
	// Predicate is the offending literal, when the failure is tied to one.
	Predicate string
	// Object is the offending object name, when the failure is tied to one.
	Object string
	// Err is the wrapped sentinel or underlying error.
	Err error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	b.WriteString(e.Err.Error())
	if e.Predicate != "" {
		fmt.Fprintf(&b, " in %s", e.Predicate)
	}
	if e.Object != "" {
		fmt.Fprintf(&b, " (object %q)", e.Object)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source reads one problem file format.
//
// Precondition: path names a file in the Source's format.
// Postcondition: Returns a non-nil Problem or a non-nil error.
type Source interface {
	Read(ctx context.Context, path string) (*Problem, error)
}

// withPath fills in the path of a LoadError, or wraps a foreign error.
func withPath(path string, err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		if le.Path == "" {
			le.Path = path
		}
		return le
	}
	return &LoadError{Path: path, Err: err}
}
