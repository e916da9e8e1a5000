package environment

import (
	"testing"
	"time"
)

func TestStringOr(t *testing.T) {
	t.Setenv("NEG_TEST_STR", "value")
	if got := StringOr("NEG_TEST_STR", "fallback"); got != "value" {
		t.Errorf("StringOr() = %q, want %q", got, "value")
	}
	if got := StringOr("NEG_TEST_STR_MISSING", "fallback"); got != "fallback" {
		t.Errorf("StringOr() = %q, want %q", got, "fallback")
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("NEG_TEST_REQ", "present")
	v, err := RequiredString("NEG_TEST_REQ")
	if err != nil {
		t.Fatalf("RequiredString() unexpected error: %v", err)
	}
	if v != "present" {
		t.Errorf("RequiredString() = %q, want %q", v, "present")
	}

	if _, err := RequiredString("NEG_TEST_REQ_MISSING"); err == nil {
		t.Error("RequiredString() expected error for unset variable")
	}
}

func TestBoolOr(t *testing.T) {
	tests := []struct {
		name  string
		value string
		def   bool
		want  bool
	}{
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"false", "false", true, false},
		{"garbage", "not-a-bool", true, true},
		{"empty", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("NEG_TEST_BOOL", tt.value)
			}
			if got := BoolOr("NEG_TEST_BOOL", tt.def); got != tt.want {
				t.Errorf("BoolOr(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}

func TestIntOr(t *testing.T) {
	t.Setenv("NEG_TEST_INT", "42")
	if got := IntOr("NEG_TEST_INT", 7); got != 42 {
		t.Errorf("IntOr() = %d, want 42", got)
	}
	t.Setenv("NEG_TEST_INT", "not-a-number")
	if got := IntOr("NEG_TEST_INT", 7); got != 7 {
		t.Errorf("IntOr() = %d, want default 7", got)
	}
}

func TestDurationOr(t *testing.T) {
	t.Setenv("NEG_TEST_DUR", "30s")
	if got := DurationOr("NEG_TEST_DUR", time.Minute); got != 30*time.Second {
		t.Errorf("DurationOr() = %v, want 30s", got)
	}
	if got := DurationOr("NEG_TEST_DUR_MISSING", time.Minute); got != time.Minute {
		t.Errorf("DurationOr() = %v, want default 1m", got)
	}
}
