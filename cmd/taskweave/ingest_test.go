package main

import (
	"testing"
)

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		size     int
		want     string
		wantErr  bool
	}{
		{
			name:     "paragraph",
			strategy: "paragraph",
			want:     "paragraph",
		},
		{
			name:     "sentence",
			strategy: "sentence",
			want:     "sentence",
		},
		{
			name:     "fixed with size",
			strategy: "fixed",
			size:     500,
			want:     "fixed(500)",
		},
		{
			name:     "whole file",
			strategy: "whole",
			want:     "whole",
		},
		{
			name:     "unknown",
			strategy: "words",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStrategy(tt.strategy, tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStrategy(%q) error = %v, wantErr %t", tt.strategy, err, tt.wantErr)
			}
			if err == nil && got.String() != tt.want {
				t.Errorf("parseStrategy(%q) = %s, want %s", tt.strategy, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("one\n  two\tthree", 100); got != "one two three" {
		t.Errorf("excerpt flatten = %q", got)
	}
	if got := excerpt("abcdefghij", 4); got != "abcd..." {
		t.Errorf("excerpt truncate = %q", got)
	}
}
