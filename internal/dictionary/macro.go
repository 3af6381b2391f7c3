package dictionary

import "strings"

// MacroDelimiter surrounds a macro name inside a cell, as in ##name##.
const MacroDelimiter = "##"

// maxMacroDepth bounds nested expansion so self-referencing macros terminate.
const maxMacroDepth = 10

// MacroReferences returns the macro names referenced in text, in order of
// appearance. Names are returned as written. An unmatched delimiter ends the scan.
func MacroReferences(text string) []string {
	var names []string
	rest := text
	for {
		start := strings.Index(rest, MacroDelimiter)
		if start == -1 {
			return names
		}
		rest = rest[start+len(MacroDelimiter):]
		end := strings.Index(rest, MacroDelimiter)
		if end == -1 {
			return names
		}
		if name := rest[:end]; name != "" && !strings.ContainsAny(name, " \t\n") {
			names = append(names, name)
		}
		rest = rest[end+len(MacroDelimiter):]
	}
}

// ExpandMacros replaces every known macro reference in text with its value.
// Values that themselves contain references are expanded too. Unknown
// references are left as written.
func (s *Snapshot) ExpandMacros(text string) string {
	return s.expand(text, 0)
}

func (s *Snapshot) expand(text string, depth int) string {
	if depth >= maxMacroDepth || !strings.Contains(text, MacroDelimiter) {
		return text
	}
	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, MacroDelimiter)
		if start == -1 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start+len(MacroDelimiter):], MacroDelimiter)
		if end == -1 {
			b.WriteString(rest)
			break
		}
		name := rest[start+len(MacroDelimiter) : start+len(MacroDelimiter)+end]
		after := rest[start+2*len(MacroDelimiter)+end:]
		if m, ok := s.Macro(name); ok {
			b.WriteString(rest[:start])
			b.WriteString(s.expand(m.Value, depth+1))
			rest = after
			continue
		}
		// Unknown name: keep the leading delimiter and rescan from the second one,
		// which may open a valid reference.
		b.WriteString(rest[:start+len(MacroDelimiter)+end])
		rest = rest[start+len(MacroDelimiter)+end:]
	}
	return b.String()
}
