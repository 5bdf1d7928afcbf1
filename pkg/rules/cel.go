package rules

import (
	"fmt"
	"strings"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celCompiler struct {
	cache     ProgramCache
	functions Functions
}

// NewCELCompiler compiles expressions with cel-go. CEL type checks against
// declared variables, and the fact names differ per direction, so each
// program is checked lazily for every distinct fact-name set it meets.
// Syntax is still verified up front.
func NewCELCompiler(cache ProgramCache, functions Functions) Compiler {
	return &celCompiler{cache: cache, functions: functions}
}

func (c *celCompiler) Engine() Engine { return EngineCEL }

func (c *celCompiler) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, compileError(EngineCEL, expression, ErrEmptyExpression)
	}
	env, err := c.env(nil)
	if err != nil {
		return nil, compileError(EngineCEL, expression, err)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, compileError(EngineCEL, expression, issues.Err())
	}
	return &celProgram{compiler: c, expression: expression, checked: map[string]celgo.Program{}}, nil
}

func (c *celCompiler) env(factNames []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("direction", celgo.StringType),
	}
	for _, name := range factNames {
		if isReserved(name) {
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	for _, name := range c.functions.Names() {
		opts = append(opts, c.function(name))
	}
	return celgo.NewEnv(opts...)
}

// function exposes a helper with one and two dynamic arguments.
func (c *celCompiler) function(name string) celgo.EnvOption {
	fn := c.functions[name]
	call := func(args ...ref.Val) ref.Val {
		native := make([]any, len(args))
		for i, arg := range args {
			native[i] = arg.Value()
		}
		out, err := fn(native...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if out == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(out)
	}
	return celgo.Function(name,
		celgo.Overload(name+"_dyn", []*celgo.Type{celgo.DynType}, celgo.DynType,
			celgo.UnaryBinding(func(arg ref.Val) ref.Val { return call(arg) })),
		celgo.Overload(name+"_dyn_dyn", []*celgo.Type{celgo.DynType, celgo.DynType}, celgo.DynType,
			celgo.BinaryBinding(func(lhs, rhs ref.Val) ref.Val { return call(lhs, rhs) })),
	)
}

type celProgram struct {
	compiler   *celCompiler
	expression string

	mu      sync.Mutex
	checked map[string]celgo.Program
}

func (p *celProgram) Run(env Env) (any, error) {
	names := env.Facts.names()
	program, err := p.program(names)
	if err != nil {
		return nil, runError(EngineCEL, p.expression, env.Direction, err)
	}
	out, _, err := program.Eval(env.bindings())
	if err != nil {
		return nil, runError(EngineCEL, p.expression, env.Direction, err)
	}
	return out.Value(), nil
}

func (p *celProgram) program(names []string) (celgo.Program, error) {
	signature := strings.Join(names, ",")
	key := cacheKey(EngineCEL, signature, p.expression)

	p.mu.Lock()
	defer p.mu.Unlock()
	if program, ok := p.checked[signature]; ok {
		return program, nil
	}
	if p.compiler.cache != nil {
		if cached, ok := p.compiler.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				p.checked[signature] = program
				return program, nil
			}
		}
	}

	env, err := p.compiler.env(names)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(p.expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	p.checked[signature] = program
	if p.compiler.cache != nil {
		p.compiler.cache.Set(key, program)
	}
	return program, nil
}
