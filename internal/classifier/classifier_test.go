package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		restricted bool
	}{
		{
			name:       "plain lowercase text",
			content:    "just a quiet sentence",
			restricted: false,
		},
		{
			name:       "capitalized words are fine",
			content:    "Hello World",
			restricted: false,
		},
		{
			name:       "word starting and ending uppercase",
			content:    "AbC test",
			restricted: true,
		},
		{
			name:       "all caps shouting",
			content:    "this is NOT okay",
			restricted: true,
		},
		{
			name:       "two letter uppercase word",
			content:    "sent via AB testing",
			restricted: true,
		},
		{
			name:       "uppercase run inside a longer word does not count",
			content:    "preAmBle",
			restricted: false,
		},
		{
			name:       "trailing uppercase only is not enough",
			content:    "tesT case",
			restricted: false,
		},
		{
			name:       "single uppercase letter is not enough",
			content:    "grade A content",
			restricted: false,
		},
		{
			name:       "match at end of content",
			content:    "closing with HeyO",
			restricted: true,
		},
		{
			name:       "empty content",
			content:    "",
			restricted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.restricted, Classify(tt.content))
		})
	}
}
