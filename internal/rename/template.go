package rename

import (
	"fmt"
	"strings"
)

// segment represents either a literal string or a placeholder.
type segment struct {
	isPlaceholder bool
	value         string // placeholder name (without braces) or literal text
}

// parseTemplate parses a template string into segments.
// Placeholders are {name}, escaped braces are {{ and }}.
func parseTemplate(template string) []segment {
	if template == "" {
		return nil
	}

	var segments []segment
	var current []rune
	inPlaceholder := false

	runes := []rune(template)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '{' && i+1 < len(runes) && runes[i+1] == '{' {
			current = append(current, '{')
			i++
			continue
		}
		if r == '}' && i+1 < len(runes) && runes[i+1] == '}' {
			current = append(current, '}')
			i++
			continue
		}

		switch {
		case r == '{' && !inPlaceholder:
			if len(current) > 0 {
				segments = append(segments, segment{value: string(current)})
				current = nil
			}
			inPlaceholder = true
		case r == '}' && inPlaceholder:
			segments = append(segments, segment{isPlaceholder: true, value: string(current)})
			current = nil
			inPlaceholder = false
		default:
			current = append(current, r)
		}
	}

	// An unterminated placeholder is kept as a placeholder so validation
	// can report it.
	if len(current) > 0 {
		segments = append(segments, segment{isPlaceholder: inPlaceholder, value: string(current)})
	}

	return segments
}

// render expands a template. resolve returns the value of a placeholder and
// whether the placeholder is known; unknown placeholders are kept verbatim.
func render(template string, resolve func(name string) (string, bool)) string {
	var b strings.Builder
	for _, seg := range parseTemplate(template) {
		if !seg.isPlaceholder {
			b.WriteString(seg.value)
			continue
		}
		v, ok := resolve(seg.value)
		if !ok {
			b.WriteString("{" + seg.value + "}")
			continue
		}
		b.WriteString(v)
	}
	return b.String()
}

// checkTemplate reports placeholders not in known.
func checkTemplate(template string, known map[string]bool) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("template is empty")
	}
	for _, seg := range parseTemplate(template) {
		if seg.isPlaceholder && !known[seg.value] {
			return fmt.Errorf("unknown placeholder {%s} in %q", seg.value, template)
		}
	}
	return nil
}
