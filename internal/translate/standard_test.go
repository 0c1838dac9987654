package translate

import (
	"testing"
	"time"

	"islandbridge/internal/model"
	"islandbridge/internal/settings"
	logx "islandbridge/pkg/logx"
)

func stdContext() Context {
	return Context{
		Config:   model.EffectiveDisplayConfig{Float: true, Shade: true, Timeout: 5 * time.Second},
		Keywords: settings.DefaultKeywords(),
		Now:      time.UnixMilli(1_000_000),
	}
}

func TestStandardTranslatorPlain(t *testing.T) {
	t.Parallel()
	tr := NewStandardTranslator(nil, logx.Nop())

	ev := model.NotificationEvent{
		Key:      "0|com.mail|1",
		SourceID: "com.mail",
		Title:    "New message",
		Text:     "Lunch tomorrow?",
		SubText:  "Inbox",
		Actions:  []model.Action{{Title: "Reply", InvokeRef: "i:reply"}},
	}
	doc := decodeParam(t, tr.Translate(ev, "icon_1", stdContext()))

	if doc.Base == nil {
		t.Fatal("want base info")
	}
	if doc.Base.Content != "Lunch tomorrow? • Inbox" {
		t.Errorf("content = %q, want text and subtext joined", doc.Base.Content)
	}
	if doc.Reopen {
		t.Error("plain notifications should not reopen")
	}
}

func TestStandardTranslatorMedia(t *testing.T) {
	t.Parallel()
	tr := NewStandardTranslator(nil, logx.Nop())

	ev := model.NotificationEvent{
		Key:          "0|com.music|2",
		SourceID:     "com.music",
		Title:        "Humbug",
		Category:     model.CategoryTransport,
		TemplateHint: "MediaStyle",
		Actions: []model.Action{
			{Title: "Previous", InvokeRef: "i:prev", IconRef: "res:prev"},
			{Title: "Pause", InvokeRef: "i:pause", IconRef: "res:pause"},
			{Title: "Next", InvokeRef: "i:next", IconRef: "res:next"},
		},
	}
	p := tr.Translate(ev, "icon_2", stdContext())
	doc := decodeParam(t, p)

	if doc.Base == nil || doc.Base.Content != "Now Playing" {
		t.Errorf("base = %+v, want media label without track text", doc.Base)
	}
	if !doc.Reopen {
		t.Error("media islands should reopen on tap")
	}
	if len(p.Actions) != 3 {
		t.Fatalf("actions = %d, want all transport controls", len(p.Actions))
	}
	for _, a := range p.Actions {
		if a.Title != "" {
			t.Errorf("action %q kept title %q, want icon-only", a.Key, a.Title)
		}
		if a.IconKey == "" {
			t.Errorf("action %q has no icon", a.Key)
		}
	}
}

func TestStandardTranslatorBigTextWins(t *testing.T) {
	t.Parallel()
	tr := NewStandardTranslator(nil, logx.Nop())

	ev := model.NotificationEvent{
		Key:      "0|com.mail|3",
		SourceID: "com.mail",
		Title:    "New message",
		Text:     "Lunch?",
		BigText:  "Lunch tomorrow at the usual place, 12:30?",
	}
	doc := decodeParam(t, tr.Translate(ev, "icon_3", stdContext()))

	if doc.Expanded == nil || doc.Expanded.Right == nil {
		t.Fatal("want an expanded body")
	}
	if got := doc.Expanded.Right.Text.Primary; got != "Lunch tomorrow at the usual place, 12:30?" {
		t.Errorf("expanded body = %q, want the longer big text", got)
	}
}

func TestStandardTranslatorTitleFallback(t *testing.T) {
	t.Parallel()
	tr := NewStandardTranslator(nil, logx.Nop())

	ev := model.NotificationEvent{
		Key:      "0|com.app|4",
		SourceID: "com.app",
		Text:     "Backup finished",
	}
	doc := decodeParam(t, tr.Translate(ev, "icon_4", stdContext()))

	if doc.Base == nil || doc.Base.Title != "Backup finished" {
		t.Errorf("base = %+v, want text promoted to title", doc.Base)
	}
}
