// Package markup holds the text helpers used around block content: HTML
// clean-up before content derivation and Markdown outline extraction for the
// form side, which only stores flattened content.
package markup

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var htmlTagPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(\s[^<>]*)?/?>`)

// Normalizer converts rich-text block content into Markdown. Plain text passes
// through untouched apart from trimming.
type Normalizer struct {
	policy *bluemonday.Policy
	conv   *converter.Converter
}

var (
	defaultNormalizer     *Normalizer
	defaultNormalizerOnce sync.Once
)

// NewNormalizer builds a Normalizer with a UGC sanitising policy and the
// CommonMark + table conversion plugins.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		policy: bluemonday.UGCPolicy(),
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Default returns a shared Normalizer. Normalizer is safe for concurrent use.
func Default() *Normalizer {
	defaultNormalizerOnce.Do(func() {
		defaultNormalizer = NewNormalizer()
	})
	return defaultNormalizer
}

// ContainsHTML reports whether content carries at least one HTML tag.
func ContainsHTML(content string) bool {
	return htmlTagPattern.MatchString(content)
}

// Normalize sanitises HTML content and converts it to Markdown.
func (n *Normalizer) Normalize(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || !ContainsHTML(trimmed) {
		return trimmed, nil
	}
	if n == nil {
		n = Default()
	}
	safe := n.policy.Sanitize(trimmed)
	out, err := n.conv.ConvertString(safe)
	if err != nil {
		return "", fmt.Errorf("markup: convert html: %w", err)
	}
	return strings.TrimSpace(out), nil
}
