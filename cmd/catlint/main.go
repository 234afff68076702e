// catlint: diagram catalog linter.
// Parses a catalog YAML file and reports template and declaration problems
// that the registry loader alone does not reject.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diaflow/diaflow/internal/domain/diagram"
)

const (
	placeholderPrompt  = "{{prompt}}"
	placeholderExample = "{{example}}"
)

type Violation struct {
	Code    string
	TypeID  string
	Message string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("catlint", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	file := fs.String("file", "", "Path to a catalog YAML file (default: the embedded catalog)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	reg, err := loadRegistry(*file)
	if err != nil {
		fmt.Fprintf(out, "ERROR loading catalog: %v\n", err)
		return 1
	}

	violations := lint(reg)
	fmt.Fprintf(out, "=== Catalog Lint Report ===\n")
	fmt.Fprintf(out, "Diagram types: %d\n", len(reg.IDs()))
	fmt.Fprintf(out, "Violations: %d\n\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(out, "[%s] %s\n", v.Code, v.Message)
	}
	if len(violations) > 0 {
		fmt.Fprintf(out, "\nFAILED: %d catalog violations found\n", len(violations))
		return 1
	}
	fmt.Fprintln(out, "PASSED: catalog is complete")
	return 0
}

func loadRegistry(path string) (*diagram.Registry, error) {
	if path == "" {
		return diagram.NewRegistry()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return diagram.NewRegistryFromYAML(data)
}

func lint(reg *diagram.Registry) []Violation {
	var violations []Violation
	for _, id := range reg.IDs() {
		def, err := reg.Lookup(id)
		if err != nil {
			continue
		}
		violations = append(violations, lintType(def)...)
	}
	return violations
}

// lintType checks one catalog entry for the contract the prompt compiler
// and normalizer rely on at runtime.
func lintType(def diagram.TypeDefinition) []Violation {
	var violations []Violation

	if !strings.Contains(def.PromptTemplate, placeholderPrompt) {
		violations = append(violations, Violation{
			Code:    "MISSING-PROMPT-PLACEHOLDER",
			TypeID:  def.ID,
			Message: fmt.Sprintf("type %s promptTemplate lacks %s", def.ID, placeholderPrompt),
		})
	}
	if !strings.Contains(def.SystemTemplate, placeholderExample) {
		violations = append(violations, Violation{
			Code:    "MISSING-EXAMPLE-PLACEHOLDER",
			TypeID:  def.ID,
			Message: fmt.Sprintf("type %s systemTemplate lacks %s", def.ID, placeholderExample),
		})
	}
	if strings.TrimSpace(def.Example) == "" {
		violations = append(violations, Violation{
			Code:    "NO-EXAMPLE",
			TypeID:  def.ID,
			Message: fmt.Sprintf("type %s has no example diagram", def.ID),
		})
	}

	violations = append(violations, lintDeclaration(def)...)
	return violations
}

// lintDeclaration verifies that the canonical declaration and the example are
// recognizable by the type's own keywords, so the normalizer never prepends a
// second declaration on top of a catalog example.
func lintDeclaration(def diagram.TypeDefinition) []Violation {
	var violations []Violation

	if !startsWithKeyword(def.Declaration, def.Keywords) {
		violations = append(violations, Violation{
			Code:    "DECLARATION-KEYWORD-MISMATCH",
			TypeID:  def.ID,
			Message: fmt.Sprintf("type %s declaration %q does not start with any of its keywords", def.ID, def.Declaration),
		})
	}

	if first := firstContentLine(def.Example); first != "" && !startsWithKeyword(first, def.Keywords) {
		violations = append(violations, Violation{
			Code:    "EXAMPLE-DECLARATION-MISMATCH",
			TypeID:  def.ID,
			Message: fmt.Sprintf("type %s example starts with %q, not a recognized keyword", def.ID, first),
		})
	}
	return violations
}

func startsWithKeyword(line string, keywords []string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	head := strings.ToLower(fields[0])
	for _, kw := range keywords {
		if head == strings.ToLower(kw) {
			return true
		}
	}
	return false
}

// firstContentLine returns the first non-blank, non-comment line of a diagram.
func firstContentLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, diagram.CommentMarker) {
			continue
		}
		return trimmed
	}
	return ""
}
