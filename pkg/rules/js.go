//go:build js_eval

package rules

import (
	"fmt"

	"github.com/dop251/goja"
)

type jsCompiler struct {
	cache     ProgramCache
	functions Functions
}

// NewJSCompiler compiles expressions with goja. Each run gets a fresh
// runtime; compiled programs are shared.
func NewJSCompiler(cache ProgramCache, functions Functions) (Compiler, error) {
	return &jsCompiler{cache: cache, functions: functions}, nil
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool {
	return true
}

func (c *jsCompiler) Engine() Engine { return EngineJS }

func (c *jsCompiler) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, compileError(EngineJS, expression, ErrEmptyExpression)
	}
	key := cacheKey(EngineJS, expression)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if program, ok := cached.(*goja.Program); ok {
				return &jsProgram{compiler: c, expression: expression, program: program}, nil
			}
		}
	}
	program, err := goja.Compile("rule", fmt.Sprintf("(function(){ return (%s); })()", expression), true)
	if err != nil {
		return nil, compileError(EngineJS, expression, err)
	}
	if c.cache != nil {
		c.cache.Set(key, program)
	}
	return &jsProgram{compiler: c, expression: expression, program: program}, nil
}

type jsProgram struct {
	compiler   *jsCompiler
	expression string
	program    *goja.Program
}

func (p *jsProgram) Run(env Env) (any, error) {
	vm := goja.New()
	for key, value := range env.bindings() {
		if err := vm.Set(key, value); err != nil {
			return nil, runError(EngineJS, p.expression, env.Direction, err)
		}
	}
	for _, name := range p.compiler.functions.Names() {
		if err := vm.Set(name, p.compiler.functions[name]); err != nil {
			return nil, runError(EngineJS, p.expression, env.Direction, err)
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, runError(EngineJS, p.expression, env.Direction, err)
	}
	return value.Export(), nil
}
