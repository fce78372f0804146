package problem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlProblem is the on-disk YAML schema:
//
//	problem: sussman
//	objects: [a, b, c]
//	init:
//	  ontable: [a, b]
//	  on:
//	    - [c, a]
//	goal:
//	  on:
//	    - [a, b]
//	    - [b, c]
type yamlProblem struct {
	Problem string   `yaml:"problem"`
	Objects []string `yaml:"objects"`
	Init    struct {
		OnTable []string   `yaml:"ontable"`
		On      [][]string `yaml:"on"`
	} `yaml:"init"`
	Goal struct {
		On [][]string `yaml:"on"`
	} `yaml:"goal"`
}

// YAMLSource reads YAML problem documents.
type YAMLSource struct{}

// NewYAMLSource returns a YAMLSource.
func NewYAMLSource() *YAMLSource { return &YAMLSource{} }

// Read implements Source.
func (s *YAMLSource) Read(_ context.Context, path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrRead, err)}
	}
	p, err := ParseYAML(data)
	if err != nil {
		return nil, withPath(path, err)
	}
	return p, nil
}

// ParseYAML decodes a YAML problem document. Unknown keys are rejected.
//
// Postcondition: Returns a non-nil Problem or a *LoadError wrapping ErrSyntax.
func ParseYAML(data []byte) (*Problem, error) {
	var doc yamlProblem
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Err: fmt.Errorf("%w: empty document", ErrSyntax)}
		}
		return nil, &LoadError{Err: fmt.Errorf("%w: %v", ErrSyntax, err)}
	}

	p := &Problem{Name: doc.Problem, Objects: doc.Objects}
	for _, x := range doc.Init.OnTable {
		p.Init = append(p.Init, Predicate{Name: PredOnTable, Args: []string{x}})
	}
	for _, pair := range doc.Init.On {
		p.Init = append(p.Init, Predicate{Name: PredOn, Args: pair})
	}
	for _, pair := range doc.Goal.On {
		p.Goal = append(p.Goal, Predicate{Name: PredOn, Args: pair})
	}
	return p, nil
}
