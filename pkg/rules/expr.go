package rules

import (
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

type exprCompiler struct {
	cache     ProgramCache
	functions Functions
}

// NewExprCompiler compiles expressions with expr-lang/expr. Facts are
// resolved at run time, so unknown names evaluate to nil instead of failing
// compilation.
func NewExprCompiler(cache ProgramCache, functions Functions) Compiler {
	return &exprCompiler{cache: cache, functions: functions}
}

func (c *exprCompiler) Engine() Engine { return EngineExpr }

func (c *exprCompiler) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, compileError(EngineExpr, expression, ErrEmptyExpression)
	}
	key := cacheKey(EngineExpr, expression)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			if program, ok := cached.(*exprProgram); ok {
				return program, nil
			}
		}
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range c.functions.Names() {
		fn := c.functions[name]
		options = append(options, exprlang.Function(name, func(args ...any) (any, error) {
			return fn(args...)
		}))
	}
	compiled, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, compileError(EngineExpr, expression, err)
	}

	program := &exprProgram{expression: expression, program: compiled}
	if c.cache != nil {
		c.cache.Set(key, program)
	}
	return program, nil
}

type exprProgram struct {
	expression string
	program    *exprvm.Program
}

func (p *exprProgram) Run(env Env) (any, error) {
	out, err := exprlang.Run(p.program, env.bindings())
	if err != nil {
		return nil, runError(EngineExpr, p.expression, env.Direction, err)
	}
	return out, nil
}
