// Package rules evaluates user supplied boolean expressions against the facts
// extracted from a snapshot. Three engines are available: expr (default), CEL
// and JavaScript (goja, behind the js_eval build tag).
package rules

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Facts is the flat binding a rule sees. A fact named sectionCount is
// addressable as `sectionCount`.
type Facts map[string]any

// names returns the fact names sorted, for cache keys.
func (f Facts) names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Env is one evaluation: the facts of a snapshot, the direction being
// transferred and the evaluation time.
type Env struct {
	Facts     Facts
	Direction string
	Now       time.Time
}

// reserved names are bound by every engine and shadow facts of the same name.
var reserved = []string{"direction", "now"}

func isReserved(name string) bool {
	for _, r := range reserved {
		if name == r {
			return true
		}
	}
	return false
}

// bindings flattens env into the variable map handed to an engine.
func (env Env) bindings() map[string]any {
	out := make(map[string]any, len(env.Facts)+len(reserved))
	for key, value := range env.Facts {
		out[key] = value
	}
	now := env.Now
	if now.IsZero() {
		now = time.Now()
	}
	out["direction"] = env.Direction
	out["now"] = now
	return out
}

// Program is a compiled expression, safe for concurrent use.
type Program interface {
	Run(env Env) (any, error)
}

// Compiler turns expressions into programs for one engine.
type Compiler interface {
	Engine() Engine
	Compile(expression string) (Program, error)
}

// ProgramCache stores engine specific compiled programs by key.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryCache is a ProgramCache backed by a map. Safe for concurrent use.
type MemoryCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{programs: map[string]any{}}
}

func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

func (c *MemoryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.programs == nil {
		c.programs = map[string]any{}
	}
	c.programs[key] = value
}

// Len returns the number of cached programs.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

func cacheKey(engine Engine, parts ...string) string {
	return string(engine) + ":" + strings.Join(parts, "\x00")
}
