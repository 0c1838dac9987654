package pipeline

import (
	"testing"

	"islandbridge/internal/model"
	"islandbridge/internal/settings"
)

func TestIsJunk(t *testing.T) {
	t.Parallel()
	phrases := settings.DefaultKeywords().Junk

	tests := []struct {
		name    string
		ev      model.NotificationEvent
		blocked []string
		want    bool
	}{
		{
			name: "all text empty",
			ev:   model.NotificationEvent{SourceID: "com.app", Title: "  ", Text: "\t"},
			want: true,
		},
		{
			name: "title repeats source id",
			ev:   model.NotificationEvent{SourceID: "com.app", Title: "com.app", Text: "body"},
			want: true,
		},
		{
			name: "source display name with empty text",
			ev:   model.NotificationEvent{SourceID: "com.app", SourceName: "MyApp", Title: "MyApp"},
			want: true,
		},
		{
			name: "boilerplate phrase",
			ev:   model.NotificationEvent{SourceID: "com.app", Title: "App is running in background"},
			want: true,
		},
		{
			name: "group summary",
			ev:   model.NotificationEvent{SourceID: "com.app", Title: "3 new messages", GroupSummary: true},
			want: true,
		},
		{
			name:    "blocked term",
			ev:      model.NotificationEvent{SourceID: "com.app", Title: "WIN a free prize"},
			blocked: []string{"free prize"},
			want:    true,
		},
		{
			name: "ordinary notification",
			ev:   model.NotificationEvent{SourceID: "com.app", Title: "Alice", Text: "see you at 5"},
			want: false,
		},
		{
			name: "sparse call survives",
			ev:   model.NotificationEvent{SourceID: "com.dialer", Category: model.CategoryCall},
			want: false,
		},
		{
			name: "sparse progress survives",
			ev: model.NotificationEvent{
				SourceID: "com.files",
				Progress: model.Progress{Indeterminate: true},
			},
			want: false,
		},
		{
			name: "carve-out does not shield group summaries",
			ev: model.NotificationEvent{
				SourceID:     "com.player",
				Category:     model.CategoryTransport,
				GroupSummary: true,
			},
			want: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsJunk(tt.ev, phrases, tt.blocked); got != tt.want {
				t.Fatalf("IsJunk = %v, want %v", got, tt.want)
			}
		})
	}
}
