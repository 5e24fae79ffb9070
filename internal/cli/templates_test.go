package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplates(t *testing.T) {
	input := `
templates:
  - hotel: Seaside
    destination: Airport
    departure: "06:30"
    max_capacity: 12
  - hotel: Seaside
    destination: Old Town
    departure: "18:05"
    max_capacity: 8
`
	templates, err := parseTemplates(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, templates, 2)

	assert.Equal(t, "Airport", templates[0].Destination)
	assert.Equal(t, 6, templates[0].DepartureHour)
	assert.Equal(t, 30, templates[0].DepartureMinute)
	assert.Equal(t, 12, templates[0].MaxCapacity)
	assert.True(t, templates[0].IsActive)
	assert.Equal(t, 18, templates[1].DepartureHour)
	assert.Equal(t, 5, templates[1].DepartureMinute)
}

func TestParseTemplatesErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "templates: []\n"},
		{"unknown field", "templates:\n  - hotel: A\n    destination: B\n    departure: \"06:00\"\n    max_capacity: 1\n    color: red\n"},
		{"bad departure", "templates:\n  - hotel: A\n    destination: B\n    departure: morning\n    max_capacity: 1\n"},
		{"hour out of range", "templates:\n  - hotel: A\n    destination: B\n    departure: \"25:00\"\n    max_capacity: 1\n"},
		{"zero capacity", "templates:\n  - hotel: A\n    destination: B\n    departure: \"06:00\"\n    max_capacity: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTemplates(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "generate", "notify", "templates", "token"}, names)
}
