package markup

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Heading is one section heading found in Markdown content.
type Heading struct {
	Level  int
	Title  string
	Blocks int
}

// Outline summarises the top-level structure of Markdown content.
type Outline struct {
	Headings []Heading
	// Blocks counts top-level non-heading nodes (paragraphs, lists, code, ...).
	Blocks int
	// Unassigned counts blocks that appear before the first heading.
	Unassigned int
}

// Assigned returns the number of blocks that sit under a heading.
func (o Outline) Assigned() int {
	return o.Blocks - o.Unassigned
}

var outlineParser = goldmark.New()

// ParseOutline walks the top level of content and groups blocks under the
// closest preceding heading.
func ParseOutline(content string) Outline {
	var out Outline
	source := []byte(content)
	if strings.TrimSpace(content) == "" {
		return out
	}

	doc := outlineParser.Parser().Parse(text.NewReader(source))
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok {
			out.Headings = append(out.Headings, Heading{
				Level: heading.Level,
				Title: strings.TrimSpace(nodeText(heading, source)),
			})
			continue
		}
		if node.Kind() == ast.KindThematicBreak {
			continue
		}
		out.Blocks++
		if len(out.Headings) == 0 {
			out.Unassigned++
			continue
		}
		out.Headings[len(out.Headings)-1].Blocks++
	}
	return out
}

func nodeText(node ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch typed := n.(type) {
		case *ast.Text:
			b.Write(typed.Segment.Value(source))
			if typed.SoftLineBreak() || typed.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(typed.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
