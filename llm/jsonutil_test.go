package llm

import "testing"

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bare array",
			content: `[{"name": "Pad Thai"}]`,
			want:    `[{"name": "Pad Thai"}]`,
		},
		{
			name:    "json code fence",
			content: "```json\n[{\"name\": \"Pad Thai\"}]\n```",
			want:    `[{"name": "Pad Thai"}]`,
		},
		{
			name:    "unlabelled code fence",
			content: "```\n[{\"name\": \"Lax\"}]\n```",
			want:    `[{"name": "Lax"}]`,
		},
		{
			name:    "surrounding prose",
			content: "Here is the menu I found:\n[{\"name\": \"Soppa\"}]\nLet me know if you need more.",
			want:    `[{"name": "Soppa"}]`,
		},
		{
			name:    "trailing comma removed",
			content: `[{"name": "Soppa"},]`,
			want:    `[{"name": "Soppa"}]`,
		},
		{
			name:    "empty array",
			content: "[]",
			want:    "[]",
		},
		{
			name:    "no array",
			content: "I could not find a lunch menu on this page.",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONArray(tt.content); got != tt.want {
				t.Errorf("ExtractJSONArray() = %q, want %q", got, tt.want)
			}
		})
	}
}
