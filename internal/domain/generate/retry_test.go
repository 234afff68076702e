package generate

import "testing"

func TestRetryState_SingleAutomaticRetry(t *testing.T) {
	t.Parallel()

	r := NewRetryState()
	if !r.Consume("first failure") {
		t.Fatal("first Consume() = false; want one automatic retry")
	}
	if r.Attempt != 1 {
		t.Errorf("Attempt = %d; want 1", r.Attempt)
	}
	if r.LastFailureReason != "first failure" {
		t.Errorf("LastFailureReason = %q", r.LastFailureReason)
	}

	if r.Consume("second failure") {
		t.Error("second Consume() = true; budget must be exhausted")
	}
	if r.Attempt != 1 {
		t.Errorf("Attempt = %d after exhausted budget; want 1", r.Attempt)
	}
}

func TestErrKind_Retryable(t *testing.T) {
	t.Parallel()

	if !ErrValidation.Retryable() || !ErrEmptyArtifact.Retryable() {
		t.Error("validation-class failures must be retryable")
	}
	if ErrTransport.Retryable() || ErrPersistence.Retryable() || ErrQuota.Retryable() {
		t.Error("transport, persistence and quota failures must not consume the retry budget")
	}
}
