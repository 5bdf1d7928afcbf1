package markup

import (
	"strings"
	"testing"
)

func TestParseOutlineGroupsBlocksUnderHeadings(t *testing.T) {
	content := strings.Join([]string{
		"Intro paragraph.",
		"",
		"## Alpha",
		"",
		"First block.",
		"",
		"Second block.",
		"",
		"## Beta",
		"",
		"- item one",
		"- item two",
	}, "\n")

	outline := ParseOutline(content)
	if len(outline.Headings) != 2 {
		t.Fatalf("expected 2 headings, got %d (%+v)", len(outline.Headings), outline.Headings)
	}
	if outline.Headings[0].Title != "Alpha" || outline.Headings[0].Level != 2 {
		t.Fatalf("unexpected first heading %+v", outline.Headings[0])
	}
	if outline.Headings[0].Blocks != 2 || outline.Headings[1].Blocks != 1 {
		t.Fatalf("unexpected block grouping %+v", outline.Headings)
	}
	if outline.Blocks != 4 || outline.Unassigned != 1 || outline.Assigned() != 3 {
		t.Fatalf("unexpected totals %+v", outline)
	}
}

func TestParseOutlineEmpty(t *testing.T) {
	outline := ParseOutline("   ")
	if len(outline.Headings) != 0 || outline.Blocks != 0 {
		t.Fatalf("expected empty outline, got %+v", outline)
	}
}

func TestNormalizePlainTextPassesThrough(t *testing.T) {
	got, err := NewNormalizer().Normalize("  just text 1 < 2  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "just text 1 < 2" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNormalizeConvertsAndSanitisesHTML(t *testing.T) {
	got, err := Default().Normalize(`<p>Hello <strong>world</strong></p><script>alert(1)</script>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "<") || strings.Contains(got, "alert") {
		t.Fatalf("expected sanitised markdown, got %q", got)
	}
	if !strings.Contains(got, "**world**") {
		t.Fatalf("expected strong text converted to markdown, got %q", got)
	}
}

func TestContainsHTML(t *testing.T) {
	if !ContainsHTML("<em>x</em>") {
		t.Fatalf("expected tag detection")
	}
	if ContainsHTML("a < b and c > d") {
		t.Fatalf("comparison operators are not tags")
	}
}
