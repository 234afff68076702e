// Package generate runs the prompt-to-diagram pipeline: it streams a model
// completion, extracts the fenced payload, emits paced partial views, then
// normalizes, sanitizes and validates the candidate before committing it.
package generate

// Event is one frame of the outbound generation stream. Partial updates carry
// the text seen so far; terminal frames set IsComplete and either an artifact
// id or an error description.
type Event struct {
	MermaidSyntax string `json:"mermaidSyntax,omitempty"`
	IsComplete    bool   `json:"isComplete"`
	ArtifactID    string `json:"artifactId,omitempty"`
	Error         bool   `json:"error,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	NeedsRetry    bool   `json:"needsRetry,omitempty"`
}

// ErrKind classifies a failed generation attempt. The retry controller
// branches on the kind: validation-class failures consume the retry budget,
// transport and persistence failures do not.
type ErrKind int

const (
	ErrTransport ErrKind = iota
	ErrValidation
	ErrEmptyArtifact
	ErrPersistence
	ErrQuota
)

func (k ErrKind) String() string {
	switch k {
	case ErrTransport:
		return "transport"
	case ErrValidation:
		return "validation"
	case ErrEmptyArtifact:
		return "empty_artifact"
	case ErrPersistence:
		return "persistence"
	case ErrQuota:
		return "quota"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may consume the automatic
// retry budget. Empty artifacts are handled like validation failures.
func (k ErrKind) Retryable() bool {
	return k == ErrValidation || k == ErrEmptyArtifact
}

// Outcome is the result of one physical generation attempt.
type Outcome struct {
	OK        bool
	Kind      ErrKind
	Message   string
	Candidate string
}
