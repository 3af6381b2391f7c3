package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ParseEnumeration parses `value<sep1>label` pairs joined by a pair
// separator. Both separators are detected from the text: the value separator
// is the first punctuation character in the string, and the pair separator is
// the punctuation in front of the next `<integer><sep1>`.
func ParseEnumeration(text string) ([]EnumLabel, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty enumeration", ErrGrammar)
	}

	valueSep, err := valueSeparator(text)
	if err != nil {
		return nil, err
	}

	var chunks []string
	if pairSep, ok := pairSeparator(text, valueSep); ok {
		boundary := regexp.MustCompile(regexp.QuoteMeta(pairSep) + `\s*[-+]?\d+\s*` + regexp.QuoteMeta(valueSep))
		start := 0
		for _, loc := range boundary.FindAllStringIndex(text, -1) {
			chunks = append(chunks, text[start:loc[0]])
			start = loc[0] + len(pairSep)
		}
		chunks = append(chunks, text[start:])
	} else {
		chunks = []string{text}
	}

	labels := make([]EnumLabel, 0, len(chunks))
	for _, chunk := range chunks {
		value, label, found := strings.Cut(chunk, valueSep)
		if !found {
			return nil, fmt.Errorf("%w: enumeration pair %q has no value separator", ErrGrammar, strings.TrimSpace(chunk))
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: enumeration value %q is not an integer", ErrGrammar, strings.TrimSpace(value))
		}
		labels = append(labels, EnumLabel{Value: n, Label: strings.TrimSpace(label)})
	}
	return labels, nil
}

// FormatEnumeration writes labels as `value | label` pairs joined by ", ".
func FormatEnumeration(labels []EnumLabel) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = strconv.FormatInt(l.Value, 10) + " | " + l.Label
	}
	return strings.Join(parts, ", ")
}

// valueSeparator returns the first character after the leading integer that
// is neither alphanumeric nor a space.
func valueSeparator(text string) (string, error) {
	rest := strings.TrimLeft(text, "+-")
	for _, r := range rest {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		return string(r), nil
	}
	return "", fmt.Errorf("%w: enumeration %q: separator between value and label missing", ErrGrammar, text)
}

// pairSeparator finds the punctuation that precedes the second pair. It
// reports false when the text holds a single pair.
func pairSeparator(text, valueSep string) (string, bool) {
	_, rest, _ := strings.Cut(text, valueSep)
	next := regexp.MustCompile(`([^\p{L}\p{N}\s])\s*[-+]?\d+\s*` + regexp.QuoteMeta(valueSep))
	m := next.FindStringSubmatch(rest)
	if m == nil {
		return "", false
	}
	return m[1], true
}
