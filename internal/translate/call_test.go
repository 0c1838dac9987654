package translate

import (
	"encoding/json"
	"testing"
	"time"

	"islandbridge/internal/model"
	"islandbridge/internal/settings"
	logx "islandbridge/pkg/logx"
)

func decodeParam(t *testing.T, p model.DisplayPayload) paramDoc {
	t.Helper()
	var doc paramDoc
	if err := json.Unmarshal(p.Param, &doc); err != nil {
		t.Fatalf("unmarshal param: %v", err)
	}
	return doc
}

func callContext(now time.Time) Context {
	return Context{
		Config:   model.EffectiveDisplayConfig{Float: true, Shade: true, Timeout: 5 * time.Second},
		Keywords: settings.DefaultKeywords(),
		Now:      now,
	}
}

func TestCallTranslatorIncoming(t *testing.T) {
	t.Parallel()
	tr := NewCallTranslator(nil, logx.Nop())

	ev := model.NotificationEvent{
		Key:      "0|com.dialer|1",
		SourceID: "com.dialer",
		Title:    "Alice",
		Text:     "Incoming call",
		Actions: []model.Action{
			{Title: "Decline", InvokeRef: "i:decline", IconRef: "res:decline"},
			{Title: "Answer", InvokeRef: "i:answer", IconRef: "res:answer"},
		},
	}
	p := tr.Translate(ev, "icon_1", callContext(time.UnixMilli(1_000_000)))

	if len(p.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(p.Actions))
	}
	if p.Actions[0].InvokeRef != "i:decline" || p.Actions[0].AccentARGB != colorRed {
		t.Errorf("left slot = %q accent %q, want decline in red", p.Actions[0].InvokeRef, p.Actions[0].AccentARGB)
	}
	if p.Actions[1].InvokeRef != "i:answer" || p.Actions[1].AccentARGB != colorGreen {
		t.Errorf("right slot = %q accent %q, want answer in green", p.Actions[1].InvokeRef, p.Actions[1].AccentARGB)
	}

	tinted := 0
	for _, pic := range p.Pictures {
		if pic.TintARGB == colorWhite {
			tinted++
		}
	}
	if tinted != 2 {
		t.Errorf("tinted action icons = %d, want 2", tinted)
	}

	doc := decodeParam(t, p)
	if doc.Dismissible {
		t.Error("incoming call should not be dismissible")
	}
	if doc.Timer != nil {
		t.Error("incoming call should not tick")
	}
	if doc.Expanded == nil || doc.Expanded.Left == nil || doc.Expanded.Left.Text.Primary != "Alice" {
		t.Errorf("expanded = %+v, want caller name on the left", doc.Expanded)
	}
}

func TestCallTranslatorOngoing(t *testing.T) {
	t.Parallel()
	tr := NewCallTranslator(nil, logx.Nop())

	start := int64(1_000_000)
	now := time.UnixMilli(start + 42_000)
	ev := model.NotificationEvent{
		Key:             "0|com.dialer|1",
		SourceID:        "com.dialer",
		Title:           "Alice",
		ShowChronometer: true,
		When:            start,
		Actions: []model.Action{
			{Title: "Hang up", InvokeRef: "i:hangup", IconRef: "res:hangup"},
			{Title: "Speaker", InvokeRef: "i:speaker", IconRef: "res:speaker"},
		},
	}
	p := tr.Translate(ev, "icon_1", callContext(now))

	if len(p.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(p.Actions))
	}
	if p.Actions[0].InvokeRef != "i:speaker" || p.Actions[0].AccentARGB != colorBlue {
		t.Errorf("left slot = %q accent %q, want speaker in blue", p.Actions[0].InvokeRef, p.Actions[0].AccentARGB)
	}
	if p.Actions[1].InvokeRef != "i:hangup" || p.Actions[1].AccentARGB != colorRed {
		t.Errorf("right slot = %q accent %q, want hang-up in red", p.Actions[1].InvokeRef, p.Actions[1].AccentARGB)
	}

	doc := decodeParam(t, p)
	if !doc.Dismissible {
		t.Error("ongoing call should stay dismissible")
	}
	if doc.Timer == nil {
		t.Fatal("ongoing call should carry a timer")
	}
	if doc.Timer.Direction != 1 || doc.Timer.Base != start || doc.Timer.Offset != 42_000 {
		t.Errorf("timer = %+v, want count-up from %d offset 42000", doc.Timer, start)
	}
}

func TestCallTranslatorFutureStartClampsToZero(t *testing.T) {
	t.Parallel()
	tr := NewCallTranslator(nil, logx.Nop())

	now := time.UnixMilli(1_000_000)
	ev := model.NotificationEvent{
		Key:             "0|com.dialer|3",
		SourceID:        "com.dialer",
		Title:           "Alice",
		ShowChronometer: true,
		When:            now.UnixMilli() + 30_000,
		Actions: []model.Action{
			{Title: "Hang up", InvokeRef: "i:hangup"},
			{Title: "Speaker", InvokeRef: "i:speaker"},
		},
	}
	p := tr.Translate(ev, "icon_3", callContext(now))

	doc := decodeParam(t, p)
	if doc.Timer == nil {
		t.Fatal("ongoing call should carry a timer")
	}
	if doc.Timer.Offset != 0 {
		t.Errorf("timer offset = %d, want 0 for a start stamp in the future", doc.Timer.Offset)
	}
}

func TestCallTranslatorFallbackSlots(t *testing.T) {
	t.Parallel()
	tr := NewCallTranslator(nil, logx.Nop())

	// No recognizable titles: host order decides the slots.
	ev := model.NotificationEvent{
		Key:             "0|com.voip|7",
		SourceID:        "com.voip",
		Title:           "Conference",
		ShowChronometer: true,
		When:            500,
		Actions: []model.Action{
			{Title: "Foo", InvokeRef: "i:foo"},
			{Title: "Bar", InvokeRef: "i:bar"},
			{Title: "Baz", InvokeRef: "i:baz"},
		},
	}
	p := tr.Translate(ev, "icon_7", callContext(time.UnixMilli(1_000)))

	if len(p.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(p.Actions))
	}
	if p.Actions[0].InvokeRef != "i:foo" || p.Actions[1].InvokeRef != "i:bar" {
		t.Errorf("slots = %q,%q, want first two host actions", p.Actions[0].InvokeRef, p.Actions[1].InvokeRef)
	}
}

func TestCallTranslatorSingleAction(t *testing.T) {
	t.Parallel()
	tr := NewCallTranslator(nil, logx.Nop())

	ev := model.NotificationEvent{
		Key:      "0|com.dialer|2",
		SourceID: "com.dialer",
		Title:    "Bob",
		Actions:  []model.Action{{Title: "Answer", InvokeRef: "i:answer"}},
	}
	p := tr.Translate(ev, "icon_2", callContext(time.UnixMilli(1_000)))

	if len(p.Actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(p.Actions))
	}
	if p.Actions[0].InvokeRef != "i:answer" {
		t.Errorf("slot = %q, want the only action kept", p.Actions[0].InvokeRef)
	}
}
