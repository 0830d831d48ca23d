package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		val  string
		def  bool
		want bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"OFF", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("TEST_BOOL_ENV", tt.val)
		if got := ParseBoolEnv("TEST_BOOL_ENV", tt.def); got != tt.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tt.val, tt.def, got, tt.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{"", time.Hour},
		{"30m", 30 * time.Minute},
		{"-5s", time.Hour},
		{"soon", time.Hour},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION_ENV", tt.val)
		if got := ParseDurationEnv("TEST_DURATION_ENV", time.Hour); got != tt.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	tests := []struct {
		val  string
		want int
	}{
		{"", 10},
		{"250", 250},
		{"0", 10},
		{"ten", 10},
	}
	for _, tt := range tests {
		t.Setenv("TEST_INT_ENV", tt.val)
		if got := ParseIntEnv("TEST_INT_ENV", 10); got != tt.want {
			t.Errorf("ParseIntEnv(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}
