// Declaration normalizer. Guarantees that after normalization the first
// non-comment line of a candidate is a recognizable top-level declaration for
// the requested type. Normalization is idempotent.
package diagram

import "strings"

// directionTokens are the direction arguments a directional-graph declaration
// may carry, e.g. "flowchart TD".
var directionTokens = map[string]bool{
	"TD": true, "TB": true, "BT": true, "LR": true, "RL": true,
}

// Normalize ensures text begins (after comments) with a valid declaration for
// def. Models frequently omit the declaration line or emit a bare keyword;
// both are repaired here rather than bounced off the validator.
func Normalize(text string, def TypeDefinition) string {
	lines := strings.Split(text, "\n")

	if idx := declarationLineIndex(lines, def); idx >= 0 {
		// Directional-graph rule: a bare keyword gets the default direction
		// appended in place instead of a duplicated declaration.
		if isDirectional(def) {
			fields := strings.Fields(lines[idx])
			if len(fields) == 1 {
				lines[idx] = lines[idx] + " " + defaultDirection(def)
				return strings.Join(lines, "\n")
			}
		}
		return text
	}

	return def.Declaration + "\n" + text
}

// declarationLineIndex returns the index of the first line whose leading token
// matches one of def's keywords (case-insensitive, leading-whitespace
// tolerant), or -1 if no line in the text declares the type.
func declarationLineIndex(lines []string, def TypeDefinition) int {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, CommentMarker) {
			continue
		}
		first := strings.Fields(trimmed)[0]
		for _, kw := range def.Keywords {
			if strings.EqualFold(first, kw) {
				return i
			}
		}
	}
	return -1
}

// isDirectional reports whether def is the directional-graph type, i.e. its
// canonical declaration carries a direction token.
func isDirectional(def TypeDefinition) bool {
	fields := strings.Fields(def.Declaration)
	return len(fields) == 2 && directionTokens[strings.ToUpper(fields[1])]
}

// defaultDirection extracts the direction token from the canonical declaration.
func defaultDirection(def TypeDefinition) string {
	fields := strings.Fields(def.Declaration)
	if len(fields) < 2 {
		return "TD"
	}
	return fields[1]
}
