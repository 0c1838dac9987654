package translate

import (
	"testing"
	"time"

	"islandbridge/internal/model"
	"islandbridge/internal/settings"
	logx "islandbridge/pkg/logx"
)

func TestTimerTranslator(t *testing.T) {
	t.Parallel()
	tr := NewTimerTranslator(nil, logx.Nop())
	nowMS := int64(1_000_000)
	ctx := Context{
		Config:   model.EffectiveDisplayConfig{Shade: true, Timeout: 5 * time.Second},
		Keywords: settings.DefaultKeywords(),
		Now:      time.UnixMilli(nowMS),
	}

	t.Run("alarm counts down", func(t *testing.T) {
		t.Parallel()
		ev := model.NotificationEvent{
			Key:      "0|com.clock|1",
			SourceID: "com.clock",
			Title:    "Tea timer",
			Category: model.CategoryAlarm,
			When:     nowMS + 90_000,
		}
		doc := decodeParam(t, tr.Translate(ev, "icon", ctx))
		if doc.Timer == nil {
			t.Fatal("want a timer")
		}
		if doc.Timer.Direction != -1 || doc.Timer.Offset != 90_000 {
			t.Errorf("timer = %+v, want countdown with 90s left", doc.Timer)
		}
		if doc.Countdown == nil || doc.Countdown.Base != ev.When {
			t.Errorf("countdown = %+v, want big face toward %d", doc.Countdown, ev.When)
		}
	})

	t.Run("passed deadline counts up", func(t *testing.T) {
		t.Parallel()
		ev := model.NotificationEvent{
			Key:      "0|com.clock|2",
			SourceID: "com.clock",
			Title:    "Tea timer",
			Category: model.CategoryAlarm,
			When:     nowMS - 5_000,
		}
		doc := decodeParam(t, tr.Translate(ev, "icon", ctx))
		if doc.Timer == nil || doc.Timer.Direction != 1 || doc.Timer.Offset != 5_000 {
			t.Errorf("timer = %+v, want count-up once the deadline passed", doc.Timer)
		}
		if doc.Countdown != nil {
			t.Errorf("countdown = %+v, want none after the deadline", doc.Countdown)
		}
		if doc.Expanded == nil || doc.Expanded.Right == nil || doc.Expanded.Right.Text.Primary != "Active" {
			t.Errorf("expanded = %+v, want the running label on the right", doc.Expanded)
		}
	})

	t.Run("stopwatch counts up", func(t *testing.T) {
		t.Parallel()
		ev := model.NotificationEvent{
			Key:      "0|com.clock|3",
			SourceID: "com.clock",
			Title:    "Stopwatch",
			When:     nowMS - 30_000,
			Actions: []model.Action{
				{Title: "Pause", InvokeRef: "i:pause"},
				{Title: "Reset", InvokeRef: "i:reset"},
			},
		}
		doc := decodeParam(t, tr.Translate(ev, "icon", ctx))
		if doc.Timer == nil {
			t.Fatal("want a timer")
		}
		if doc.Timer.Direction != 1 || doc.Timer.Offset != 30_000 {
			t.Errorf("timer = %+v, want count-up with 30s elapsed", doc.Timer)
		}
		if len(doc.TextButtons) != 2 {
			t.Errorf("text buttons = %v, want both stopwatch controls", doc.TextButtons)
		}
	})

	t.Run("finished timer is static", func(t *testing.T) {
		t.Parallel()
		ev := model.NotificationEvent{
			Key:      "0|com.clock|4",
			SourceID: "com.clock",
			Title:    "Timer finished",
			Category: model.CategoryAlarm,
			When:     nowMS,
		}
		doc := decodeParam(t, tr.Translate(ev, "icon", ctx))
		if doc.Timer != nil {
			t.Errorf("timer = %+v, want none after it rang", doc.Timer)
		}
		if doc.Compact == nil || doc.Compact.PicKey != checkGlyphKey {
			t.Errorf("compact = %+v, want check glyph", doc.Compact)
		}
	})
}
