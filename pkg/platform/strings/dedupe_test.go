package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "trims and drops duplicates preserving order",
			input: []string{"  kafka-1:9092 ", "kafka-2:9092", "kafka-1:9092", ""},
			want:  []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{
			name:  "whitespace-only elements are dropped",
			input: []string{"   ", "\t", "a"},
			want:  []string{"a"},
		},
		{
			name:  "case-sensitive",
			input: []string{"Foo", "foo"},
			want:  []string{"Foo", "foo"},
		},
		{
			name:  "nil input stays nil",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}
