package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertMarkdownToMattermost(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no markdown",
			input:    "This is regular text",
			expected: "This is regular text",
		},
		{
			name:     "heading level 1",
			input:    "# Heading 1",
			expected: "# Heading 1",
		},
		{
			name:     "heading with embedded bold",
			input:    "## **Important** section",
			expected: "# **Important** section",
		},
		{
			name:     "heading without space after hash",
			input:    "#NoSpace",
			expected: "# NoSpace",
		},
		{
			name:     "multiple headings",
			input:    "# First Heading\nSome text\n## Second Heading",
			expected: "# First Heading\nSome text\n# Second Heading",
		},
		{
			name:     "plain bold untouched outside heading",
			input:    "This has **bold text** in it",
			expected: "This has **bold text** in it",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertMarkdownToMattermost(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestAssertInvariant(t *testing.T) {
	t.Run("TrueCondition", func(t *testing.T) {
		assert.NotPanics(t, func() {
			AssertInvariant(true, "This should not panic")
		})
	})

	t.Run("FalseCondition", func(t *testing.T) {
		assert.PanicsWithValue(t, "invariant violated - This should panic", func() {
			AssertInvariant(false, "This should panic")
		})
	})
}

func TestResolveSlackMentions(t *testing.T) {
	t.Run("NoMentions", func(t *testing.T) {
		message := "This is a regular message with no mentions"
		result := ResolveSlackMentions(message, map[string]string{})
		assert.Equal(t, message, result)
	})

	t.Run("SingleMentionResolved", func(t *testing.T) {
		message := "Hey <@U123456>, can you help with this?"
		result := ResolveSlackMentions(message, map[string]string{"U123456": "john.doe"})
		assert.Equal(t, "Hey @john.doe, can you help with this?", result)
	})

	t.Run("MultipleMentionsResolved", func(t *testing.T) {
		message := "Hey <@U123456> and <@U789012>, can you help?"
		result := ResolveSlackMentions(message, map[string]string{
			"U123456": "john.doe",
			"U789012": "jane.smith",
		})
		assert.Equal(t, "Hey @john.doe and @jane.smith, can you help?", result)
	})

	t.Run("MentionWithDisplayLabel", func(t *testing.T) {
		message := "Hey <@U123456|john>, can you help?"
		result := ResolveSlackMentions(message, map[string]string{"U123456": "john.doe"})
		assert.Equal(t, "Hey @john.doe, can you help?", result)
	})

	t.Run("UnresolvedMentionKeptAsIs", func(t *testing.T) {
		message := "Hey <@U999999>, can you help?"
		result := ResolveSlackMentions(message, map[string]string{})
		assert.Equal(t, message, result)
	})

	t.Run("BotMention", func(t *testing.T) {
		message := "Hey <@W123456>, can you help?"
		result := ResolveSlackMentions(message, map[string]string{"W123456": "migration-bot"})
		assert.Equal(t, "Hey @migration-bot, can you help?", result)
	})
}
