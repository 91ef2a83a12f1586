package cda

import "testing"

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string // "" means nil expected
	}{
		{name: "empty", in: "", want: ""},
		{name: "full timestamp", in: "20240115143000", want: "2024-01-15T14:30:00"},
		{name: "timestamp with offset", in: "20240115143000+0200", want: "2024-01-15T14:30:00"},
		{name: "date only", in: "20240115", want: "2024-01-15T00:00:00"},
		{name: "year month passthrough", in: "202401", want: "202401"},
		{name: "garbage passthrough", in: "not-a-date", want: "not-a-date"},
		{name: "invalid full timestamp passthrough", in: "20241399250000", want: "20241399250000"},
		{name: "invalid date passthrough", in: "20241340", want: "20241340"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTime(tt.in)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("NormalizeTime(%q) = %q, want nil", tt.in, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("NormalizeTime(%q) = nil, want %q", tt.in, tt.want)
			}
			if *got != tt.want {
				t.Errorf("NormalizeTime(%q) = %q, want %q", tt.in, *got, tt.want)
			}
		})
	}
}

func TestNormalizeTimeDoesNotAliasInput(t *testing.T) {
	in := "20240115"
	got := NormalizeTime(in)
	if got == nil || *got != "2024-01-15T00:00:00" {
		t.Fatalf("unexpected result: %v", got)
	}
}
