package generate

// maxAutoRetries bounds automatic re-generation within one logical request.
// A manual user retry starts a new logical request with a fresh budget.
const maxAutoRetries = 1

// RetryState spans up to two physical generation attempts for one logical
// request. Attempt never exceeds MaxAttempts.
type RetryState struct {
	Attempt           int
	MaxAttempts       int
	LastFailureReason string
}

func NewRetryState() *RetryState {
	return &RetryState{MaxAttempts: maxAutoRetries}
}

// Consume records a failure and reports whether an automatic retry may run.
// Only validation-class failures should be offered here; transport failures
// leave the budget untouched and surface directly.
func (r *RetryState) Consume(reason string) bool {
	if r.Attempt >= r.MaxAttempts {
		return false
	}
	r.Attempt++
	r.LastFailureReason = reason
	return true
}
