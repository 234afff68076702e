package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diaflow/diaflow/internal/domain/diagram"
)

func TestRun_EmbeddedCatalogPasses(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{}, &out)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, out.String())
	}
	if !strings.Contains(out.String(), "PASSED") {
		t.Fatalf("expected PASSED report, got %q", out.String())
	}
}

func TestRun_InvalidFlag_Returns2(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if code := run([]string{"--bogus"}, &out); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestRun_MissingFile_Returns1(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	code := run([]string{"--file", "does-not-exist.yaml"}, &out)

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "ERROR loading catalog") {
		t.Fatalf("expected load error, got %q", out.String())
	}
}

func TestRun_BrokenCatalogReportsViolations(t *testing.T) {
	t.Parallel()

	catalog := `types:
  - id: flowchart
    keywords: [flowchart, graph]
    declaration: "flowchart TD"
    promptTemplate: "Draw a flowchart."
    systemTemplate: "You draw diagrams."
    example: "pie title Broken"
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatalf("writing catalog: %v", err)
	}

	var out bytes.Buffer
	code := run([]string{"--file", path}, &out)

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d: %s", code, out.String())
	}
	for _, want := range []string{
		"MISSING-PROMPT-PLACEHOLDER",
		"MISSING-EXAMPLE-PLACEHOLDER",
		"EXAMPLE-DECLARATION-MISMATCH",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report lacks %s:\n%s", want, out.String())
		}
	}
}

func TestLintType_CompleteEntryIsClean(t *testing.T) {
	t.Parallel()

	def := diagram.TypeDefinition{
		ID:             "sequence",
		Keywords:       []string{"sequenceDiagram"},
		Declaration:    "sequenceDiagram",
		PromptTemplate: "Describe: {{prompt}}",
		SystemTemplate: "Example:\n{{example}}",
		Example:        "%% greeting\nsequenceDiagram\n  A->>B: hi",
	}

	if got := lintType(def); len(got) != 0 {
		t.Fatalf("expected no violations, got %v", got)
	}
}

func TestLintDeclaration_KeywordMismatch(t *testing.T) {
	t.Parallel()

	def := diagram.TypeDefinition{
		ID:          "gantt",
		Keywords:    []string{"gantt"},
		Declaration: "timeline",
	}

	got := lintDeclaration(def)
	if len(got) != 1 || got[0].Code != "DECLARATION-KEYWORD-MISMATCH" {
		t.Fatalf("expected DECLARATION-KEYWORD-MISMATCH, got %v", got)
	}
}

func TestFirstContentLine_SkipsCommentsAndBlanks(t *testing.T) {
	t.Parallel()

	got := firstContentLine("\n%% header\n\nflowchart TD\nA-->B")
	if got != "flowchart TD" {
		t.Fatalf("firstContentLine = %q; want %q", got, "flowchart TD")
	}
}
