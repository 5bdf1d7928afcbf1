package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-formbridge/internal/hydrate"
	"github.com/goliatone/go-formbridge/internal/layering"
	"github.com/goliatone/go-formbridge/pkg/activity"
	"github.com/goliatone/go-formbridge/pkg/rules"
	"gopkg.in/yaml.v3"
)

// ValidationMode selects how strictly snapshots are gated.
type ValidationMode string

const (
	// ValidationStrict blocks transfers that fail any content, structure
	// or assignment gate.
	ValidationStrict ValidationMode = "strict"
	// ValidationLenient demotes the section and assignment gates to
	// warnings. Structural errors still block.
	ValidationLenient ValidationMode = "lenient"
)

const (
	DefaultMaxRetryAttempts = 2
	DefaultTimeout          = 5000 * time.Millisecond
	DefaultRetryDelay       = 1000 * time.Millisecond

	maxRetryAttemptsLimit = 10
	maxTimeoutMs          = 30000
	maxRetryDelayMs       = 30000
)

// Config holds the bridge configuration. Fields tagged json:"-" are runtime
// collaborators and are never loaded from a file.
type Config struct {
	EnableValidation    bool           `json:"enableValidation" yaml:"enableValidation"`
	EnableErrorRecovery bool           `json:"enableErrorRecovery" yaml:"enableErrorRecovery"`
	ValidationMode      ValidationMode `json:"validationMode" yaml:"validationMode"`
	DebugMode           bool           `json:"debugMode" yaml:"debugMode"`
	MaxRetryAttempts    int            `json:"maxRetryAttempts" yaml:"maxRetryAttempts"`
	TimeoutMs           int            `json:"timeoutMs" yaml:"timeoutMs"`
	RetryDelayMs        int            `json:"retryDelayMs" yaml:"retryDelayMs"`
	RuleEngine          rules.Engine   `json:"ruleEngine,omitempty" yaml:"ruleEngine,omitempty"`
	Rules               []rules.Rule   `json:"rules,omitempty" yaml:"rules,omitempty"`
	// ContentFieldKey mirrors the document content into this form field.
	ContentFieldKey string `json:"contentFieldKey,omitempty" yaml:"contentFieldKey,omitempty"`
	// NormalizeMarkup sanitises HTML block content and converts it to
	// Markdown before it is concatenated.
	NormalizeMarkup bool `json:"normalizeMarkup" yaml:"normalizeMarkup"`

	Logger         *slog.Logger     `json:"-" yaml:"-"`
	TransferLogger TransferLogger   `json:"-" yaml:"-"`
	Hooks          activity.Hooks   `json:"-" yaml:"-"`
	Activity       activity.Config  `json:"-" yaml:"-"`
	IDGenerator    IDGenerator      `json:"-" yaml:"-"`
	Classifier     *ErrorClassifier `json:"-" yaml:"-"`
	RuleFunctions  rules.Functions  `json:"-" yaml:"-"`
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		EnableValidation:    true,
		EnableErrorRecovery: true,
		ValidationMode:      ValidationStrict,
		MaxRetryAttempts:    DefaultMaxRetryAttempts,
		TimeoutMs:           int(DefaultTimeout.Milliseconds()),
		RetryDelayMs:        int(DefaultRetryDelay.Milliseconds()),
		RuleEngine:          rules.EngineExpr,
	}
}

// NewConfig applies opts on top of DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.MaxRetryAttempts < 1 || c.MaxRetryAttempts > maxRetryAttemptsLimit {
		return fmt.Errorf("bridge: maxRetryAttempts must be between 1 and %d, got %d", maxRetryAttemptsLimit, c.MaxRetryAttempts)
	}
	if c.TimeoutMs < 1 || c.TimeoutMs > maxTimeoutMs {
		return fmt.Errorf("bridge: timeoutMs must be between 1 and %d, got %d", maxTimeoutMs, c.TimeoutMs)
	}
	if c.RetryDelayMs < 0 || c.RetryDelayMs > maxRetryDelayMs {
		return fmt.Errorf("bridge: retryDelayMs must be between 0 and %d, got %d", maxRetryDelayMs, c.RetryDelayMs)
	}
	switch c.ValidationMode {
	case ValidationStrict, ValidationLenient:
	default:
		return fmt.Errorf("bridge: unknown validationMode %q", c.ValidationMode)
	}
	switch c.RuleEngine {
	case "", rules.EngineExpr, rules.EngineCEL, rules.EngineJS:
	default:
		return fmt.Errorf("bridge: unknown ruleEngine %q", c.RuleEngine)
	}
	for i, rule := range c.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("bridge: rules[%d]: %w", i, err)
		}
		if rule.Direction != "" && !Direction(rule.Direction).Valid() {
			return fmt.Errorf("bridge: rules[%d]: unknown direction %q", i, rule.Direction)
		}
	}
	return nil
}

// Timeout returns TimeoutMs as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RetryDelay returns RetryDelayMs as a duration.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return discardLogger()
	}
	return c.Logger
}

func (c Config) transferLogger() TransferLogger {
	if c.TransferLogger == nil {
		return noopTransferLogger{}
	}
	return c.TransferLogger
}

func (c Config) classifier() *ErrorClassifier {
	if c.Classifier == nil {
		return NewErrorClassifier(nil)
	}
	return c.Classifier
}

func (c Config) emitter() *activity.Emitter {
	if len(c.Hooks) == 0 {
		return nil
	}
	settings := c.Activity
	settings.Enabled = true
	return activity.NewEmitter(c.Hooks, settings)
}

// compiledRules is shared by every rule set in the process.
var compiledRules = rules.NewMemoryCache()

func (c Config) ruleSet() (*rules.RuleSet, error) {
	if len(c.Rules) == 0 {
		return nil, nil
	}
	opts := []rules.RuleSetOption{
		rules.WithProgramCache(compiledRules),
		rules.WithFunctions(c.RuleFunctions),
	}
	if c.Logger != nil {
		opts = append(opts, rules.WithEvaluatorLogger(rules.SlogEvaluatorLogger(c.Logger)))
	}
	set, err := rules.NewRuleSet(c.RuleEngine, c.Rules, opts...)
	if err != nil {
		return nil, fmt.Errorf("bridge: build rules: %w", err)
	}
	return set, nil
}

// WithConfig replaces the file-loadable fields with those of src and keeps
// runtime collaborators already configured.
func WithConfig(src Config) Option {
	return func(cfg *Config) {
		cfg.EnableValidation = src.EnableValidation
		cfg.EnableErrorRecovery = src.EnableErrorRecovery
		cfg.ValidationMode = src.ValidationMode
		cfg.DebugMode = src.DebugMode
		cfg.MaxRetryAttempts = src.MaxRetryAttempts
		cfg.TimeoutMs = src.TimeoutMs
		cfg.RetryDelayMs = src.RetryDelayMs
		cfg.RuleEngine = src.RuleEngine
		cfg.Rules = append([]rules.Rule(nil), src.Rules...)
		cfg.ContentFieldKey = src.ContentFieldKey
		cfg.NormalizeMarkup = src.NormalizeMarkup
	}
}

// WithValidation toggles the validator. Disabling it is discouraged.
func WithValidation(enabled bool) Option {
	return func(cfg *Config) {
		cfg.EnableValidation = enabled
	}
}

// WithErrorRecovery toggles recovery strategies on failed results.
func WithErrorRecovery(enabled bool) Option {
	return func(cfg *Config) {
		cfg.EnableErrorRecovery = enabled
	}
}

// WithValidationMode selects strict or lenient validation.
func WithValidationMode(mode ValidationMode) Option {
	return func(cfg *Config) {
		cfg.ValidationMode = mode
	}
}

// WithDebugMode adds per-stage diagnostics to results.
func WithDebugMode(enabled bool) Option {
	return func(cfg *Config) {
		cfg.DebugMode = enabled
	}
}

// WithMaxRetryAttempts sets the number of retries after the first attempt.
func WithMaxRetryAttempts(n int) Option {
	return func(cfg *Config) {
		cfg.MaxRetryAttempts = n
	}
}

// WithTimeout bounds the whole transfer, retries included.
func WithTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.TimeoutMs = int(d.Milliseconds())
	}
}

// WithRetryDelay sets the fixed pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.RetryDelayMs = int(d.Milliseconds())
	}
}

// WithRules adds rules evaluated by the validators.
func WithRules(engine rules.Engine, list ...rules.Rule) Option {
	return func(cfg *Config) {
		cfg.RuleEngine = engine
		cfg.Rules = append(cfg.Rules, list...)
	}
}

// WithRuleFunctions exposes extra helpers to rule expressions.
func WithRuleFunctions(functions rules.Functions) Option {
	return func(cfg *Config) {
		cfg.RuleFunctions = functions
	}
}

// WithContentFieldKey also writes the derived content into this form field.
func WithContentFieldKey(key string) Option {
	return func(cfg *Config) {
		cfg.ContentFieldKey = key
	}
}

// WithMarkupNormalization converts HTML block content to Markdown.
func WithMarkupNormalization(enabled bool) Option {
	return func(cfg *Config) {
		cfg.NormalizeMarkup = enabled
	}
}

// WithLogger sets the structured logger. Nil discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

// WithTransferLogger observes every transfer attempt.
func WithTransferLogger(logger TransferLogger) Option {
	return func(cfg *Config) {
		cfg.TransferLogger = logger
	}
}

// WithActivityHooks emits transfer and sync events to hooks.
func WithActivityHooks(settings activity.Config, hooks ...activity.ActivityHook) Option {
	return func(cfg *Config) {
		cfg.Activity = settings
		cfg.Hooks = append(cfg.Hooks, hooks...)
	}
}

// WithIDGenerator sets the generator for operation and sync ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(cfg *Config) {
		cfg.IDGenerator = gen
	}
}

// WithErrorClassifier replaces the default classifier.
func WithErrorClassifier(classifier *ErrorClassifier) Option {
	return func(cfg *Config) {
		cfg.Classifier = classifier
	}
}

// LoadConfig reads one or more YAML configuration files. Later files
// override earlier ones key by key; missing keys take their defaults and
// unknown keys are rejected.
func LoadConfig(paths ...string) (Config, error) {
	if len(paths) == 0 {
		return Config{}, fmt.Errorf("bridge: read config: no files given")
	}
	layers := make([]map[string]any, 0, len(paths))
	for i := len(paths) - 1; i >= 0; i-- {
		data, err := os.ReadFile(paths[i])
		if err != nil {
			return Config{}, fmt.Errorf("bridge: read config: %w", err)
		}
		payload, err := parsePayload(data)
		if err != nil {
			return Config{}, fmt.Errorf("%w (%s)", err, paths[i])
		}
		layers = append(layers, payload)
	}
	return decodeConfig(hydrate.Source{Name: strings.Join(paths, ","), Format: "yaml"}, layering.Merge(layers...))
}

// ParseConfig parses YAML (or JSON, which YAML accepts) configuration bytes.
func ParseConfig(data []byte) (Config, error) {
	payload, err := parsePayload(data)
	if err != nil {
		return Config{}, err
	}
	return decodeConfig(hydrate.Source{Format: "yaml"}, payload)
}

func parsePayload(data []byte) (map[string]any, error) {
	payload := map[string]any{}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("bridge: parse config: %w: %v", ErrParse, err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func decodeConfig(src hydrate.Source, payload map[string]any) (Config, error) {
	decoder := hydrate.NewDecoder[Config](
		hydrate.WithPreHook[Config](applyConfigDefaults),
		hydrate.WithDisallowUnknownFields[Config](),
		hydrate.WithPostHook[Config](func(_ hydrate.Source, cfg *Config) error {
			return cfg.Validate()
		}),
	)
	cfg, err := decoder.Decode(src, payload)
	if err != nil {
		return Config{}, fmt.Errorf("bridge: load config: %w", err)
	}
	return cfg, nil
}

func applyConfigDefaults(_ hydrate.Source, payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(DefaultConfig())
	if err != nil {
		return nil, err
	}
	defaults := map[string]any{}
	if err := json.Unmarshal(buffer, &defaults); err != nil {
		return nil, err
	}
	return layering.Merge(payload, defaults), nil
}
