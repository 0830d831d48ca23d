package util

import (
	"strings"
	"testing"
)

func TestGeneratedIDs(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() string
		prefix string
	}{
		{"outbox", GenerateOutboxID, "outbox_"},
		{"thread", GenerateThreadID, "t_"},
		{"custom", func() string { return NewID("rec_") }, "rec_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 100; i++ {
				id := tt.gen()
				if !strings.HasPrefix(id, tt.prefix) {
					t.Fatalf("id %q missing prefix %q", id, tt.prefix)
				}
				hex := strings.TrimPrefix(id, tt.prefix)
				if len(hex) != 32 || strings.Trim(hex, "0123456789abcdef") != "" {
					t.Fatalf("id %q should end in 32 lowercase hex characters", id)
				}
				if seen[id] {
					t.Fatalf("duplicate id %q", id)
				}
				seen[id] = true
			}
		})
	}
}
