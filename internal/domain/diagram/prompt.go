// Prompt compiler. Turns a registry definition plus request context into the
// message list handed to the streaming provider.
package diagram

import (
	"strings"

	"github.com/diaflow/diaflow/internal/infra/llm"
)

// PromptInput carries the per-request pieces of prompt compilation.
type PromptInput struct {
	Prompt  string
	History []llm.Message

	// Retry annotations. When IsRetry is set the failure reason is included
	// verbatim so the model is steered away from whatever the checker
	// rejected last time.
	IsRetry       bool
	FailureReason string
}

// retryTemperatureBump is added to the sampling temperature on retry so the
// second completion is not a near-duplicate of the failed one.
const retryTemperatureBump = 0.4

const (
	placeholderPrompt  = "{{prompt}}"
	placeholderExample = "{{example}}"
)

// CompilePrompt builds the system+history+user message list for one attempt.
func CompilePrompt(def TypeDefinition, in PromptInput) []llm.Message {
	system := strings.ReplaceAll(def.SystemTemplate, placeholderExample, def.Example)
	user := strings.ReplaceAll(def.PromptTemplate, placeholderPrompt, in.Prompt)

	if in.IsRetry && in.FailureReason != "" {
		var b strings.Builder
		b.WriteString(user)
		b.WriteString("\n\nThe previous attempt failed validation with this error:\n")
		b.WriteString(in.FailureReason)
		b.WriteString("\nRegenerate the diagram using simpler, more reliable syntax.")
		user = b.String()
	}

	msgs := make([]llm.Message, 0, len(in.History)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: system})
	msgs = append(msgs, in.History...)
	msgs = append(msgs, llm.Message{Role: "user", Content: user})
	return msgs
}

// Temperature returns the sampling temperature for an attempt: the base value
// for the first attempt, base+bump (capped at 1.0) for a retry.
func Temperature(base float32, isRetry bool) float32 {
	if !isRetry {
		return base
	}
	t := base + retryTemperatureBump
	if t > 1.0 {
		t = 1.0
	}
	return t
}
