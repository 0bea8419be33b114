package payment

import "testing"

func TestParseStatus(t *testing.T) {
	valid := []string{
		"created", "submitted", "confirmed", "processing",
		"success", "rejected", "failed", "refunded",
	}
	for _, s := range valid {
		got, err := ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) failed: %v", s, err)
		}
		if got.String() != s {
			t.Errorf("ParseStatus(%q) = %q", s, got)
		}
	}
}

func TestParseStatus_RejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "pending", "SUCCESS", "Created"} {
		if _, err := ParseStatus(s); err == nil {
			t.Errorf("Expected ParseStatus(%q) to fail", s)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusSuccess, StatusRejected, StatusFailed, StatusRefunded}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}
	active := []Status{StatusCreated, StatusSubmitted, StatusConfirmed, StatusProcessing}
	for _, s := range active {
		if s.Terminal() {
			t.Errorf("Expected %s to not be terminal", s)
		}
	}
}
