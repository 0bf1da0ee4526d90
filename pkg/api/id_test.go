package api

import "testing"

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	if !ValidateRunID(id) {
		t.Errorf("NewRunID() = %q, want valid run ID", id)
	}
	if other := NewRunID(); other == id {
		t.Errorf("NewRunID() returned duplicate %q", id)
	}
}

func TestValidateRunID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid", "run_0f8fad5bd9cb469fa16570867728950e", true},
		{"wrong prefix", "job_0f8fad5bd9cb469fa16570867728950e", false},
		{"too short", "run_0f8fad5b", false},
		{"not hex", "run_zf8fad5bd9cb469fa16570867728950e", false},
		{"empty", "", false},
		{"prefix only", "run_", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRunID(tt.id); got != tt.want {
				t.Errorf("ValidateRunID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}
