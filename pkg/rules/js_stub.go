//go:build !js_eval

package rules

import "fmt"

// NewJSCompiler is unavailable without the js_eval build tag.
func NewJSCompiler(ProgramCache, Functions) (Compiler, error) {
	return nil, fmt.Errorf("%w: js (build with -tags js_eval)", ErrEngineUnavailable)
}

// JSAvailable reports whether the binary was built with the js_eval tag.
func JSAvailable() bool {
	return false
}
