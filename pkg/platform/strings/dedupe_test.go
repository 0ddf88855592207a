package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "repeated id", input: []string{"a1", " a1 ", "b2"}, expected: []string{"a1", "b2"}},
		{name: "blank entries dropped", input: []string{"", "  ", "c3"}, expected: []string{"c3"}},
		{name: "order kept", input: []string{"z", "y", "z", "x"}, expected: []string{"z", "y", "x"}},
		{name: "case sensitive", input: []string{"A", "a"}, expected: []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Oficios 2025", CollapseSpaces("  Oficios \t  2025\n"))
	assert.Equal(t, "", CollapseSpaces("   "))
}
