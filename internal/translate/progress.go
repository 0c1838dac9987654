package translate

import (
	"fmt"

	"islandbridge/internal/model"
	logx "islandbridge/pkg/logx"
)

// ProgressTranslator renders long-running operations (downloads, installs,
// transfers) as a percentage ring and bar. Completed operations switch to
// a static check glyph.
type ProgressTranslator struct {
	base
}

func NewProgressTranslator(factory Factory, log logx.Logger) *ProgressTranslator {
	return &ProgressTranslator{base: newBase(factory, log)}
}

func (t *ProgressTranslator) Translate(ev model.NotificationEvent, picKey string, tc Context) model.DisplayPayload {
	title := collapseLine(ev.Title)
	text := collapseLine(ev.Text)

	b := t.newBuilder(ev, title)
	b.SetConfig(tc.Config)
	b.AddPicture(resolveIcon(ev, picKey))

	keys := addActions(b, extractActions(ev, modeText))

	percent := ev.Progress.Percent()
	finished := percent >= 100 ||
		containsAny(title, tc.Keywords.Finish) || containsAny(text, tc.Keywords.Finish)

	switch {
	case finished:
		b.AddPicture(model.Picture{Key: checkGlyphKey, ResourceRef: checkGlyphRef})
		b.SetBaseInfo(title, text, "", picKey, keys)
		b.SetExpanded(&Panel{PicKey: checkGlyphKey, Text: PanelText{Primary: title, Secondary: text}}, nil)
		b.SetCompact(checkGlyphKey)
	case ev.Progress.Indeterminate || !ev.Progress.Present():
		// No usable percentage. Badge only, no ring.
		b.SetBaseInfo(title, text, "", picKey, keys)
		b.SetProgressBadge(picKey, text, -1, colorBlue)
		b.SetCompact(picKey)
	default:
		label := fmt.Sprintf("%d%%", percent)
		b.SetBaseInfo(title, text, label, picKey, keys)
		b.SetProgressBar(percent, colorBlue, "", "")
		b.SetProgressBadge(picKey, label, percent, colorBlue)
		b.SetCompactProgress(picKey, percent, colorBlue)
	}

	if t.log.Enabled(logx.LevelDebug) {
		t.log.Debug("progress translated",
			logx.Int("percent", percent),
			logx.Bool("finished", finished),
			logx.Bool("indeterminate", ev.Progress.Indeterminate),
		)
	}
	return b.Build()
}
