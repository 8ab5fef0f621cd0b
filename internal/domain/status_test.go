package domain_test

import (
	"testing"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
)

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"pending", "processing", "completed", "failed"}
	for _, s := range valid {
		got, err := domain.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValue(t *testing.T) {
	for _, s := range []string{"", "queued", "PENDING", "done"} {
		if _, err := domain.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

func TestCanTransition_ValidForward(t *testing.T) {
	cases := []struct {
		from domain.Status
		to   domain.Status
	}{
		{domain.StatusPending, domain.StatusProcessing},
		{domain.StatusProcessing, domain.StatusCompleted},
		{domain.StatusProcessing, domain.StatusFailed},
		{domain.StatusFailed, domain.StatusPending}, // retry re-enqueue
	}
	for _, c := range cases {
		if !domain.CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestCanTransition_Rejected(t *testing.T) {
	cases := []struct {
		from domain.Status
		to   domain.Status
	}{
		{domain.StatusPending, domain.StatusCompleted}, // must pass through processing
		{domain.StatusPending, domain.StatusFailed},
		{domain.StatusCompleted, domain.StatusPending}, // completed is terminal
		{domain.StatusCompleted, domain.StatusProcessing},
		{domain.StatusCompleted, domain.StatusFailed},
		{domain.StatusFailed, domain.StatusCompleted}, // retry goes through pending
		{domain.StatusProcessing, domain.StatusPending},
	}
	for _, c := range cases {
		if domain.CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s → %s) should be false", c.from, c.to)
		}
	}
}

func TestCanRetry_OnlyFromFailed(t *testing.T) {
	if !domain.StatusFailed.CanRetry() {
		t.Error("CanRetry(failed) should be true")
	}
	for _, s := range []domain.Status{domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted} {
		if s.CanRetry() {
			t.Errorf("CanRetry(%s) should be false", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if !domain.StatusCompleted.IsTerminal() || !domain.StatusFailed.IsTerminal() {
		t.Error("completed and failed are terminal")
	}
	if domain.StatusPending.IsTerminal() || domain.StatusProcessing.IsTerminal() {
		t.Error("pending and processing are not terminal")
	}
}
