// Package keyfilter compiles key predicates for App.ClearDataFunc.
//
//	f, err := keyfilter.Compile(`key startsWith "user:" && !glob("user:*:draft", key)`)
//	app.ClearDataFunc(f.Match)
//
// Expressions see one variable, key, and may call glob(pattern, key) which
// uses path.Match syntax.
package keyfilter

import (
	"errors"
	"fmt"
	"path"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var ErrEmpty = errors.New("keyfilter: expression must not be empty")

type Filter struct {
	src     string
	program *vm.Program
}

func Compile(expression string) (*Filter, error) {
	if expression == "" {
		return nil, ErrEmpty
	}
	program, err := expr.Compile(expression,
		expr.Env(map[string]any{"key": ""}),
		expr.AsBool(),
		expr.Function("glob", glob, new(func(string, string) bool)),
	)
	if err != nil {
		return nil, fmt.Errorf("keyfilter: compile %q: %w", expression, err)
	}
	return &Filter{src: expression, program: program}, nil
}

// MustCompile is Compile for expressions fixed at build time.
func MustCompile(expression string) *Filter {
	f, err := Compile(expression)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Filter) String() string { return f.src }

// Eval runs the predicate against key.
func (f *Filter) Eval(key string) (bool, error) {
	out, err := expr.Run(f.program, map[string]any{"key": key})
	if err != nil {
		return false, fmt.Errorf("keyfilter: eval %q: %w", f.src, err)
	}
	b, _ := out.(bool)
	return b, nil
}

// Match is Eval with evaluation errors treated as no match.
func (f *Filter) Match(key string) bool {
	ok, err := f.Eval(key)
	return err == nil && ok
}

func glob(params ...any) (any, error) {
	pattern, _ := params[0].(string)
	name, _ := params[1].(string)
	ok, err := path.Match(pattern, name)
	if err != nil {
		return false, fmt.Errorf("glob %q: %w", pattern, err)
	}
	return ok, nil
}
