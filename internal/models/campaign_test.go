package models

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw      uint8
		expected Status
		ok       bool
	}{
		{0, StatusActive, true},
		{1, StatusSuccessful, true},
		{2, StatusFailed, true},
		{3, StatusClosing, true},
		{4, StatusClosed, true},
		{5, 0, false},
		{255, 0, false},
	}

	for _, tt := range tests {
		s, err := ParseStatus(tt.raw)
		if tt.ok && err != nil {
			t.Errorf("ParseStatus(%d) unexpected error: %v", tt.raw, err)
			continue
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("ParseStatus(%d) expected error, got %v", tt.raw, s)
			}
			continue
		}
		if s != tt.expected {
			t.Errorf("ParseStatus(%d) = %v, want %v", tt.raw, s, tt.expected)
		}
	}
}

func TestStatusLabels(t *testing.T) {
	tests := []struct {
		status Status
		label  string
	}{
		{StatusActive, "Active"},
		{StatusSuccessful, "Successful"},
		{StatusFailed, "Failed"},
		{StatusClosing, "Closing"},
		{StatusClosed, "Closed"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.label {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.label)
		}
		s, ok := ParseStatusLabel(tt.label)
		if !ok || s != tt.status {
			t.Errorf("ParseStatusLabel(%q) = %v, %v, want %v", tt.label, s, ok, tt.status)
		}
	}

	if _, ok := ParseStatusLabel("pending"); ok {
		t.Error("ParseStatusLabel should reject unknown labels")
	}
}

func TestIsCreator(t *testing.T) {
	c := Campaign{Creator: "0xAbC1230000000000000000000000000000000001"}

	if !c.IsCreator("0xabc1230000000000000000000000000000000001") {
		t.Error("address comparison must be case-insensitive")
	}
	if c.IsCreator("0xabc1230000000000000000000000000000000002") {
		t.Error("different address must not match creator")
	}
	if c.IsCreator("") {
		t.Error("empty viewer must never be the creator")
	}
}
