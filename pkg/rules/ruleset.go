package rules

import (
	"fmt"
	"strings"
	"time"
)

// Engine names an expression engine.
type Engine string

const (
	EngineExpr Engine = "expr"
	EngineCEL  Engine = "cel"
	EngineJS   Engine = "js"
)

// Severity decides whether a failed rule blocks a transfer.
type Severity string

const (
	SeverityBlocking Severity = "blocking"
	SeverityAdvisory Severity = "advisory"
)

// Rule is a named boolean expression. A rule passes when its expression
// evaluates to true. Direction limits the rule to one transfer direction;
// empty applies it to both.
type Rule struct {
	Name       string   `json:"name" yaml:"name"`
	Expression string   `json:"expression" yaml:"expression"`
	Severity   Severity `json:"severity,omitempty" yaml:"severity,omitempty"`
	Message    string   `json:"message,omitempty" yaml:"message,omitempty"`
	Direction  string   `json:"direction,omitempty" yaml:"direction,omitempty"`
}

func (r Rule) failureMessage() string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("rule %q failed", r.Name)
}

// Validate checks the rule definition, not the expression.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rules: rule name is required")
	}
	if strings.TrimSpace(r.Expression) == "" {
		return fmt.Errorf("rules: rule %q has no expression", r.Name)
	}
	switch r.Severity {
	case "", SeverityBlocking, SeverityAdvisory:
	default:
		return fmt.Errorf("rules: rule %q has unknown severity %q", r.Name, r.Severity)
	}
	return nil
}

// Outcome splits failed rules into blocking errors and advisory warnings.
type Outcome struct {
	Errors   []string
	Warnings []string
}

// RuleSetOption configures a RuleSet.
type RuleSetOption func(*ruleSetConfig)

type ruleSetConfig struct {
	cache     ProgramCache
	functions Functions
	logger    EvaluatorLogger
}

// WithProgramCache shares compiled programs across rule sets. The two
// directions of a sync usually carry the same rules.
func WithProgramCache(cache ProgramCache) RuleSetOption {
	return func(cfg *ruleSetConfig) {
		cfg.cache = cache
	}
}

// WithFunctions adds helpers on top of DefaultFunctions.
func WithFunctions(functions Functions) RuleSetOption {
	return func(cfg *ruleSetConfig) {
		cfg.functions = functions
	}
}

// WithEvaluatorLogger records one event per rule evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) RuleSetOption {
	return func(cfg *ruleSetConfig) {
		cfg.logger = logger
	}
}

// RuleSet evaluates a fixed list of rules with one engine.
type RuleSet struct {
	engine   Engine
	rules    []Rule
	programs []Program
	logger   EvaluatorLogger
}

// NewCompiler returns the compiler for engine.
func NewCompiler(engine Engine, cache ProgramCache, functions Functions) (Compiler, error) {
	switch engine {
	case "", EngineExpr:
		return NewExprCompiler(cache, functions), nil
	case EngineCEL:
		return NewCELCompiler(cache, functions), nil
	case EngineJS:
		return NewJSCompiler(cache, functions)
	default:
		return nil, fmt.Errorf("rules: unknown engine %q", engine)
	}
}

// NewRuleSet validates and compiles rules up front so broken expressions are
// reported at construction rather than during a transfer.
func NewRuleSet(engine Engine, rules []Rule, opts ...RuleSetOption) (*RuleSet, error) {
	cfg := ruleSetConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopEvaluatorLogger{}
	}
	if engine == "" {
		engine = EngineExpr
	}
	functions, err := DefaultFunctions().Merge(cfg.functions)
	if err != nil {
		return nil, err
	}

	compiler, err := NewCompiler(engine, cfg.cache, functions)
	if err != nil {
		return nil, err
	}

	set := &RuleSet{
		engine:   engine,
		rules:    make([]Rule, 0, len(rules)),
		programs: make([]Program, 0, len(rules)),
		logger:   cfg.logger,
	}
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if rule.Severity == "" {
			rule.Severity = SeverityBlocking
		}
		program, err := compiler.Compile(rule.Expression)
		if err != nil {
			return nil, fmt.Errorf("rules: compile %q: %w", rule.Name, err)
		}
		set.rules = append(set.rules, rule)
		set.programs = append(set.programs, program)
	}
	return set, nil
}

// Len returns the number of rules in the set.
func (s *RuleSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Engine reports the engine backing the set.
func (s *RuleSet) Engine() Engine {
	if s == nil {
		return ""
	}
	return s.engine
}

// Check runs every rule that applies to direction. Rules that cannot be
// evaluated, or that do not return a boolean, become warnings regardless of
// severity.
func (s *RuleSet) Check(direction string, facts map[string]any) Outcome {
	var out Outcome
	if s == nil || len(s.rules) == 0 {
		return out
	}
	env := Env{Facts: facts, Direction: direction, Now: time.Now()}

	for i, rule := range s.rules {
		if rule.Direction != "" && rule.Direction != direction {
			continue
		}
		start := time.Now()
		value, err := s.programs[i].Run(env)
		s.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:    string(s.engine),
			Rule:      rule.Name,
			Expr:      rule.Expression,
			Direction: direction,
			Duration:  time.Since(start),
			Err:       err,
		})
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("rule %q could not be evaluated: %v", rule.Name, err))
			continue
		}
		passed, ok := value.(bool)
		if !ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("rule %q returned %T, expected bool", rule.Name, value))
			continue
		}
		if passed {
			continue
		}
		if rule.Severity == SeverityAdvisory {
			out.Warnings = append(out.Warnings, rule.failureMessage())
			continue
		}
		out.Errors = append(out.Errors, rule.failureMessage())
	}
	return out
}
