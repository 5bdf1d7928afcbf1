package bridge

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formbridge/internal/markup"
)

// documentShape is the ordered view of a document snapshot that the
// validator and the transformer share.
type documentShape struct {
	sections      []Section
	assigned      map[string][]Block
	assignedCount int
	unassigned    int
	totalChars    int
	emptySections []string
}

func analyzeDocument(s *DocumentSnapshot) documentShape {
	shape := documentShape{assigned: map[string][]Block{}}
	if s == nil {
		return shape
	}

	shape.sections = append([]Section(nil), s.Sections...)
	sort.SliceStable(shape.sections, func(i, j int) bool {
		return shape.sections[i].Order < shape.sections[j].Order
	})
	known := make(map[string]bool, len(shape.sections))
	for _, section := range shape.sections {
		known[section.ID] = true
	}

	for _, block := range s.Blocks {
		shape.totalChars += utf8.RuneCountInString(strings.TrimSpace(block.Content))
		if block.SectionID != "" && known[block.SectionID] {
			shape.assigned[block.SectionID] = append(shape.assigned[block.SectionID], block)
			shape.assignedCount++
			continue
		}
		shape.unassigned++
	}
	for id := range shape.assigned {
		blocks := shape.assigned[id]
		sort.SliceStable(blocks, func(i, j int) bool {
			return blocks[i].Order < blocks[j].Order
		})
	}
	for _, section := range shape.sections {
		if len(shape.assigned[section.ID]) == 0 {
			shape.emptySections = append(shape.emptySections, section.Name)
		}
	}
	return shape
}

func (shape documentShape) metadata() TransformMetadata {
	return TransformMetadata{
		Sections:         len(shape.sections),
		Blocks:           shape.assignedCount + shape.unassigned,
		AssignedBlocks:   shape.assignedCount,
		UnassignedBlocks: shape.unassigned,
		TotalCharacters:  shape.totalChars,
	}
}

// documentStructureErrors reports snapshot data that no transfer can use.
func documentStructureErrors(s *DocumentSnapshot) []string {
	if s == nil {
		return []string{"snapshot is unavailable"}
	}
	var errs []string
	seen := make(map[string]bool, len(s.Sections))
	for i, section := range s.Sections {
		if strings.TrimSpace(section.ID) == "" {
			errs = append(errs, fmt.Sprintf("section %d has no id", i))
		} else if seen[section.ID] {
			errs = append(errs, fmt.Sprintf("section id %q is duplicated", section.ID))
		}
		seen[section.ID] = true
		if strings.TrimSpace(section.Name) == "" {
			errs = append(errs, fmt.Sprintf("section %d has no name", i))
		}
		if section.Order < 0 {
			errs = append(errs, fmt.Sprintf("section %q has negative order %d", section.ID, section.Order))
		}
	}
	for i, block := range s.Blocks {
		if strings.TrimSpace(block.ID) == "" {
			errs = append(errs, fmt.Sprintf("block %d has no id", i))
		}
		if !utf8.ValidString(block.Content) {
			errs = append(errs, fmt.Sprintf("block %q content is not valid text", block.ID))
		}
		if block.SectionID != "" && strings.TrimSpace(block.SectionID) == "" {
			errs = append(errs, fmt.Sprintf("block %q has a blank section reference", block.ID))
		}
	}
	return errs
}

// deriveDocumentContent renders every non-empty section as a Markdown
// heading followed by its blocks. When the structure yields nothing the
// stored completed content is used instead.
func deriveDocumentContent(s *DocumentSnapshot, shape documentShape, normalizer *markup.Normalizer) (string, error) {
	var parts []string
	for _, section := range shape.sections {
		blocks := shape.assigned[section.ID]
		if len(blocks) == 0 {
			continue
		}
		body := make([]string, 0, len(blocks))
		for _, block := range blocks {
			content := strings.TrimSpace(block.Content)
			if normalizer != nil {
				normalized, err := normalizer.Normalize(content)
				if err != nil {
					return "", fmt.Errorf("normalize block %q: %w", block.ID, err)
				}
				content = normalized
			}
			if content != "" {
				body = append(body, content)
			}
		}
		if len(body) == 0 {
			continue
		}
		parts = append(parts, "## "+strings.TrimSpace(section.Name)+"\n\n"+strings.Join(body, "\n\n"))
	}

	content := strings.TrimSpace(strings.Join(parts, "\n\n"))
	if content == "" && s != nil {
		content = strings.TrimSpace(s.CompletedContent)
	}
	return content, nil
}

func formStructureErrors(s *FormSnapshot) []string {
	if s == nil {
		return []string{"snapshot is unavailable"}
	}
	var errs []string
	if s.CurrentStep < 0 {
		errs = append(errs, fmt.Sprintf("current step %d is negative", s.CurrentStep))
	}
	if s.ProgressWidth < 0 || s.ProgressWidth > 100 || s.ProgressWidth != s.ProgressWidth {
		errs = append(errs, fmt.Sprintf("progress width %v is outside 0-100", s.ProgressWidth))
	}
	for key := range s.FieldValues {
		if strings.TrimSpace(key) == "" {
			errs = append(errs, "field values contain a blank key")
			break
		}
	}
	if !utf8.ValidString(s.DocumentCompletedContent) {
		errs = append(errs, "document content is not valid text")
	}
	return errs
}
