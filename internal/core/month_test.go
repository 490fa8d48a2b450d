package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMonth(t *testing.T) {
	now := time.Date(2024, time.August, 15, 0, 0, 0, 0, time.UTC)

	names := []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	for i, name := range names {
		want := time.Month(i + 1)
		assert.Equal(t, CurrentMonth(time.Date(2024, want, 1, 0, 0, 0, 0, time.UTC)), ParseMonth(name, now))
	}

	tests := []struct {
		in   string
		want string
	}{
		{"MARCH", "3"},
		{"march", "3"},
		{" December ", "12"},
		{"3", "3"},
		{"11", "11"},
		{"Sept", "Sept"},
		{"last month", "last month"},
		{"", "8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMonth(tt.in, now), "input %q", tt.in)
	}
}
