// Package diagram provides the diagram-type catalog and the text-shaping
// stages of the generation pipeline: prompt compilation, declaration
// normalization, and type-specific sanitization.
package diagram

// TypeDefinition describes one supported diagram kind.
// Loaded once at startup from the embedded catalog; immutable and shared
// read-only by all requests.
type TypeDefinition struct {
	// ID is the request-facing identifier, e.g. "flowchart".
	ID string `yaml:"id"`

	// Keywords are the canonical top-level declaration keywords the
	// normalizer recognizes, most canonical first.
	Keywords []string `yaml:"keywords"`

	// Declaration is the full canonical declaration line prepended when no
	// keyword is found, e.g. "flowchart TD".
	Declaration string `yaml:"declaration"`

	// PromptTemplate is the user-prompt scaffold; "{{prompt}}" is replaced
	// with the request text.
	PromptTemplate string `yaml:"promptTemplate"`

	// SystemTemplate is the system-prompt scaffold; "{{example}}" is replaced
	// with Example.
	SystemTemplate string `yaml:"systemTemplate"`

	// Example is a short valid diagram shown to the model.
	Example string `yaml:"example"`
}

// CommentMarker starts a mermaid comment line. The normalizer skips comment
// lines when looking for the declaration.
const CommentMarker = "%%"
