package rules

import (
	"fmt"
	"sort"
	"strings"
)

// Function is a helper callable from rule expressions.
type Function func(args ...any) (any, error)

// Functions maps helper names to implementations. Expressions call a
// helper by its exact name; two names differing only in case cannot be
// merged. A Functions value is never mutated once handed to a compiler.
type Functions map[string]Function

// DefaultFunctions returns the helpers document rules tend to need.
func DefaultFunctions() Functions {
	return Functions{
		"words": func(args ...any) (any, error) {
			text, err := stringArgs("words", 1, args)
			if err != nil {
				return nil, err
			}
			return len(strings.Fields(text[0])), nil
		},
		"mentions": func(args ...any) (any, error) {
			text, err := stringArgs("mentions", 2, args)
			if err != nil {
				return nil, err
			}
			return strings.Contains(strings.ToLower(text[0]), strings.ToLower(text[1])), nil
		},
		"headings": func(args ...any) (any, error) {
			text, err := stringArgs("headings", 1, args)
			if err != nil {
				return nil, err
			}
			count := 0
			for _, line := range strings.Split(text[0], "\n") {
				if strings.HasPrefix(strings.TrimSpace(line), "#") {
					count++
				}
			}
			return count, nil
		},
	}
}

func stringArgs(name string, want int, args []any) ([]string, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, want, len(args))
	}
	out := make([]string, len(args))
	for i, arg := range args {
		text, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("%s expects strings, got %T", name, arg)
		}
		out[i] = text
	}
	return out, nil
}

// Merge returns a new set holding f and extra. Names clashing with an
// existing one (ignoring case), reserved names and nil functions are
// rejected.
func (f Functions) Merge(extra Functions) (Functions, error) {
	out := make(Functions, len(f)+len(extra))
	seen := make(map[string]string, len(f)+len(extra))
	for name, fn := range f {
		out[name] = fn
		seen[strings.ToLower(name)] = name
	}
	for name, fn := range extra {
		trimmed := strings.TrimSpace(name)
		key := strings.ToLower(trimmed)
		switch {
		case key == "":
			return nil, fmt.Errorf("rules: function name must not be empty")
		case fn == nil:
			return nil, fmt.Errorf("rules: function %q is nil", name)
		case isReserved(key):
			return nil, fmt.Errorf("rules: function name %q is reserved", name)
		}
		if existing, ok := seen[key]; ok {
			return nil, fmt.Errorf("rules: function %q clashes with %q", name, existing)
		}
		out[trimmed] = fn
		seen[key] = trimmed
	}
	return out, nil
}

// Call runs the function registered under name.
func (f Functions) Call(name string, args ...any) (any, error) {
	fn := f[name]
	if fn == nil {
		return nil, fmt.Errorf("rules: function %q not registered", name)
	}
	return fn(args...)
}

// Names lists the registered names in order.
func (f Functions) Names() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
