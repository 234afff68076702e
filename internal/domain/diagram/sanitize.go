// Type-specific sanitizers. Applied after normalization for types with
// structural minimums the model tends to miss. Every sanitizer is idempotent:
// a second pass over already-sanitized text is a no-op.
package diagram

import (
	"regexp"
	"strings"
)

// Sanitize applies the per-type fixups for def. Types without structural
// minimums pass through untouched.
func Sanitize(text string, def TypeDefinition) string {
	switch def.ID {
	case "gantt":
		return sanitizeGantt(text)
	case "architecture":
		return sanitizeArchitecture(text)
	default:
		return text
	}
}

// ─── gantt ───────────────────────────────────────────────────────────────────

const (
	defaultDateFormat = "  dateFormat YYYY-MM-DD"
	defaultSection    = "  section Tasks"
)

// sanitizeGantt injects the date-format directive and a section grouping when
// absent. Mermaid refuses a gantt chart carrying tasks outside a section or
// without a dateFormat.
func sanitizeGantt(text string) string {
	lines := strings.Split(text, "\n")

	hasDateFormat := false
	hasSection := false
	declIdx := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "dateFormat"):
			hasDateFormat = true
		case strings.HasPrefix(trimmed, "section "), trimmed == "section":
			hasSection = true
		case declIdx < 0 && strings.EqualFold(trimmed, "gantt"):
			declIdx = i
		}
	}

	if hasDateFormat && hasSection {
		return text
	}
	if declIdx < 0 {
		// No declaration to anchor on; leave repair to the validator verdict.
		return text
	}

	var out []string
	out = append(out, lines[:declIdx+1]...)
	if !hasDateFormat {
		out = append(out, defaultDateFormat)
	}
	if !hasSection {
		out = append(out, defaultSection)
	}
	out = append(out, lines[declIdx+1:]...)
	return strings.Join(out, "\n")
}

// ─── architecture ────────────────────────────────────────────────────────────

// labelRe matches a bracketed label segment, e.g. [Auth & Session/Store].
var labelRe = regexp.MustCompile(`\[[^\]\n]*\]`)

// edgeRe matches a service-to-service edge line with optional port
// annotations and any arrow-ish operator the model may have invented.
// Groups: indent, left id, left port, right port, right id.
var edgeRe = regexp.MustCompile(`^(\s*)([A-Za-z0-9_]+)(?::([LRTB]))?\s*(?:<?--+>?|<?->|—+)\s*(?:([LRTB]):)?([A-Za-z0-9_]+)\s*$`)

// sanitizeArchitecture strips label characters that break edge-port syntax and
// rewrites malformed edge tokens to the canonical "--" operator with default
// port annotations on either side.
func sanitizeArchitecture(text string) string {
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		line = labelRe.ReplaceAllStringFunc(line, cleanArchitectureLabel)

		if m := edgeRe.FindStringSubmatch(line); m != nil {
			indent, left, leftPort, rightPort, right := m[1], m[2], m[3], m[4], m[5]
			if leftPort == "" {
				leftPort = "R"
			}
			if rightPort == "" {
				rightPort = "L"
			}
			line = indent + left + ":" + leftPort + " -- " + rightPort + ":" + right
		}

		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

// cleanArchitectureLabel rewrites one bracketed label: ampersands become
// "and", raw slashes become spaces, runs of whitespace collapse.
func cleanArchitectureLabel(label string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(label, "["), "]")
	inner = strings.ReplaceAll(inner, "&", "and")
	inner = strings.ReplaceAll(inner, "/", " ")
	inner = strings.Join(strings.Fields(inner), " ")
	return "[" + inner + "]"
}
