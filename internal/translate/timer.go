package translate

import (
	"islandbridge/internal/model"
	logx "islandbridge/pkg/logx"
)

// TimerTranslator renders countdown timers and stopwatches. Alarm-category
// events count down toward their target; everything else counts up from
// its start time.
type TimerTranslator struct {
	base
}

func NewTimerTranslator(factory Factory, log logx.Logger) *TimerTranslator {
	return &TimerTranslator{base: newBase(factory, log)}
}

func (t *TimerTranslator) Translate(ev model.NotificationEvent, picKey string, tc Context) model.DisplayPayload {
	title := collapseLine(ev.Title)
	text := collapseLine(ev.Text)

	b := t.newBuilder(ev, title)
	b.SetConfig(tc.Config)
	b.AddPicture(resolveIcon(ev, picKey))

	keys := addActions(b, extractActions(ev, modeText))
	b.SetBaseInfo(title, text, "", picKey, keys)

	finished := containsAny(title, tc.Keywords.Finish) || containsAny(text, tc.Keywords.Finish)
	now := tc.now().UnixMilli()

	switch {
	case finished:
		// A timer that rang is static. Show the check glyph, no ticking.
		b.AddPicture(model.Picture{Key: checkGlyphKey, ResourceRef: checkGlyphRef})
		b.SetExpanded(&Panel{PicKey: checkGlyphKey, Text: PanelText{Primary: title, Secondary: text}}, nil)
		b.SetCompact(checkGlyphKey)
	case ev.When > now:
		// A future base is a deadline: count down toward it with the big
		// countdown face.
		b.SetTimer(TimerSpec{Direction: -1, Base: ev.When, Offset: ev.When - now, Now: now})
		b.SetCountdown(ev.When, picKey)
		b.SetCompact(picKey)
	default:
		offset := now - ev.When
		if offset < 0 {
			offset = 0
		}
		b.SetTimer(TimerSpec{Direction: 1, Base: ev.When, Offset: offset, Now: now})
		b.SetExpanded(
			&Panel{PicKey: picKey, Text: PanelText{Primary: title, Secondary: text}},
			&Panel{Text: PanelText{Primary: "Active"}},
		)
		b.SetCompact(picKey)
	}
	if len(keys) > 0 {
		b.SetTextButtons(keys)
	}

	if t.log.Enabled(logx.LevelDebug) {
		t.log.Debug("timer translated",
			logx.String("category", ev.Category),
			logx.Bool("finished", finished),
		)
	}
	return b.Build()
}
