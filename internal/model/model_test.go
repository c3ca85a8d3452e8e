package model

import (
	"encoding/json"
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestNewInputBothChallenges(t *testing.T) {
	in := NewInput("https://www.youtube.com/s/player/abc/base.js", "var a;", "SIG", "NNN")

	if in.Type != InputTypePlayer {
		t.Errorf("Type = %q, want %q", in.Type, InputTypePlayer)
	}
	if len(in.Requests) != 2 {
		t.Fatalf("len(Requests) = %d, want 2", len(in.Requests))
	}
	if in.Requests[0].Type != KindSignature || in.Requests[0].Challenges[0] != "SIG" {
		t.Errorf("Requests[0] = %+v, want sig [SIG]", in.Requests[0])
	}
	if in.Requests[1].Type != KindNParam || in.Requests[1].Challenges[0] != "NNN" {
		t.Errorf("Requests[1] = %+v, want nsig [NNN]", in.Requests[1])
	}
	if in.CountChallenges(KindSignature) != 1 || in.CountChallenges(KindNParam) != 1 {
		t.Errorf("challenge counts = %d/%d, want 1/1",
			in.CountChallenges(KindSignature), in.CountChallenges(KindNParam))
	}
}

func TestNewInputEmptyChallengesNeverNil(t *testing.T) {
	in := NewInput("", "var a;", "", "")

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := decoded["PlayerURL"]; ok {
		t.Error("PlayerURL must not be serialized")
	}

	for _, r := range in.Requests {
		if r.Challenges == nil {
			t.Errorf("request %q has nil challenges", r.Type)
		}
		if len(r.Challenges) != 0 {
			t.Errorf("request %q has %d challenges, want 0", r.Type, len(r.Challenges))
		}
	}
}

func TestOutputLookup(t *testing.T) {
	out := Output{
		Type: OutputResult,
		Responses: []Response{
			{Type: OutputResult, Data: map[string]string{"SIG": "decoded-sig"}},
			{Type: OutputError, Error: "nsig failed"},
		},
	}

	tests := []struct {
		challenge string
		want      string
		wantOK    bool
	}{
		{"SIG", "decoded-sig", true},
		{"NNN", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := out.Lookup(tt.challenge)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.challenge, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStatusConstants(t *testing.T) {
	statuses := []struct {
		constant string
		expected string
	}{
		{StatusCompleted, "completed"},
		{StatusFailed, "failed"},
	}
	for _, s := range statuses {
		if s.constant != s.expected {
			t.Errorf("status constant = %q, want %q", s.constant, s.expected)
		}
	}
}
