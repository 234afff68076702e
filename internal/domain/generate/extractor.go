package generate

import "strings"

const fenceMarker = "```"

// ExtractorState tracks where the extractor is relative to the fenced block.
type ExtractorState int

const (
	StateSeekingFence ExtractorState = iota
	StateCollecting
	StateDone
	StateAborted
)

func (s ExtractorState) String() string {
	switch s {
	case StateSeekingFence:
		return "seeking_fence"
	case StateCollecting:
		return "collecting"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Extractor is a line-wise state machine that pulls the first fenced code
// block out of an incrementally arriving text stream. Text before the opening
// fence is discarded, the fence lines themselves never reach the payload, and
// everything after the closing fence is ignored.
type Extractor struct {
	state   ExtractorState
	pending string
	payload []string
}

func NewExtractor() *Extractor {
	return &Extractor{state: StateSeekingFence}
}

func (e *Extractor) State() ExtractorState { return e.state }

// Feed advances the machine with one stream delta and returns the payload
// lines completed by it. Deltas arriving after a terminal state are dropped.
func (e *Extractor) Feed(delta string) []string {
	if e.state == StateDone || e.state == StateAborted {
		return nil
	}

	e.pending += delta

	var completed []string
	for {
		idx := strings.IndexByte(e.pending, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(e.pending[:idx], "\r")
		e.pending = e.pending[idx+1:]

		switch e.state {
		case StateSeekingFence:
			// The opening fence may carry a language tag; the whole line
			// is discarded either way.
			if strings.Contains(line, fenceMarker) {
				e.state = StateCollecting
			}
		case StateCollecting:
			if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
				e.state = StateDone
				return completed
			}
			e.payload = append(e.payload, line)
			completed = append(completed, line)
		}
	}
	return completed
}

// Finish marks the end of the stream and returns the candidate text. ok is
// false when the stream ended before a complete fenced block was seen; the
// partial payload is still returned so callers can show the user what arrived.
func (e *Extractor) Finish() (candidate string, ok bool) {
	switch e.state {
	case StateDone:
		return strings.Join(e.payload, "\n"), true
	case StateCollecting:
		tail := strings.TrimSuffix(e.pending, "\r")
		e.pending = ""
		if strings.HasPrefix(strings.TrimSpace(tail), fenceMarker) {
			// Closing fence arrived without a trailing newline.
			e.state = StateDone
			return strings.Join(e.payload, "\n"), true
		}
		if strings.TrimSpace(tail) != "" {
			e.payload = append(e.payload, tail)
		}
		e.state = StateAborted
		return strings.Join(e.payload, "\n"), false
	default:
		e.state = StateAborted
		return "", false
	}
}
