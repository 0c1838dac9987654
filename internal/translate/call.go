package translate

import (
	"strings"

	"islandbridge/internal/model"
	logx "islandbridge/pkg/logx"
)

// CallTranslator renders call notifications. Incoming calls surface
// answer/decline buttons; ongoing calls show an elapsed timer with
// speaker and hang-up controls.
type CallTranslator struct {
	base
}

func NewCallTranslator(factory Factory, log logx.Logger) *CallTranslator {
	return &CallTranslator{base: newBase(factory, log)}
}

// incoming reports whether the event is a ringing call: no chronometer
// running and at least one action titled like "answer".
func (t *CallTranslator) incoming(ev model.NotificationEvent, kw []string) bool {
	if ev.ShowChronometer {
		return false
	}
	for _, a := range ev.Actions {
		if containsAny(a.Title, kw) {
			return true
		}
	}
	return false
}

// pickAction returns the index of the first action whose title matches any
// keyword, or -1.
func pickAction(actions []model.Action, kw []string) int {
	for i, a := range actions {
		if containsAny(a.Title, kw) {
			return i
		}
	}
	return -1
}

func (t *CallTranslator) Translate(ev model.NotificationEvent, picKey string, tc Context) model.DisplayPayload {
	title := collapseLine(ev.Title)
	if title == "" {
		title = collapseLine(ev.Text)
	}

	b := t.newBuilder(ev, title)
	b.SetConfig(tc.Config)
	b.AddPicture(resolveIcon(ev, picKey))

	incoming := t.incoming(ev, tc.Keywords.Answer)

	// Slot selection. Incoming wants decline then answer; ongoing wants
	// speaker then hang-up. Missing matches fall back to host order so a
	// call island always has its controls.
	var leftIdx, rightIdx int
	var leftColor, rightColor string
	if incoming {
		leftIdx = pickAction(ev.Actions, tc.Keywords.HangUp)
		rightIdx = pickAction(ev.Actions, tc.Keywords.Answer)
		leftColor, rightColor = colorRed, colorGreen
	} else {
		leftIdx = pickAction(ev.Actions, tc.Keywords.Speaker)
		rightIdx = pickAction(ev.Actions, tc.Keywords.HangUp)
		leftColor, rightColor = colorBlue, colorRed
	}
	if leftIdx < 0 && len(ev.Actions) > 0 {
		leftIdx = 0
	}
	if rightIdx < 0 || rightIdx == leftIdx {
		rightIdx = -1
		for i := range ev.Actions {
			if i != leftIdx {
				rightIdx = i
				break
			}
		}
	}

	extracted := extractActions(ev, modeIcon)
	keys := make([]string, 0, 2)
	for slot, idx := range []int{leftIdx, rightIdx} {
		if idx < 0 || idx >= len(extracted) {
			continue
		}
		a := extracted[idx]
		if slot == 0 {
			a.desc.AccentARGB = leftColor
		} else {
			a.desc.AccentARGB = rightColor
		}
		b.AddAction(a.desc)
		if a.pic != nil {
			// Icons sit on a colored slot; tint for contrast.
			a.pic.TintARGB = colorWhite
			b.AddPicture(*a.pic)
		}
		keys = append(keys, a.desc.Key)
	}

	content := collapseLine(ev.Text)
	if content == title {
		content = ""
	}
	if !incoming && !strings.Contains(content, ":") {
		// Keep elapsed-style text ("05:32"); anything else gets the label.
		content = "Ongoing"
	}
	b.SetBaseInfo(title, content, "", picKey, keys)

	if incoming {
		b.SetExpanded(&Panel{PicKey: picKey, Text: PanelText{Primary: title, Secondary: content}}, nil)
		// Ringing islands stay up until acted on.
		b.SetDismissible(false)
	} else if ev.When > 0 {
		// Elapsed time counts up from the call start.
		now := tc.now().UnixMilli()
		offset := now - ev.When
		if offset < 0 {
			// A start stamp from the future counts as zero elapsed.
			offset = 0
		}
		b.SetTimer(TimerSpec{Direction: 1, Base: ev.When, Offset: offset, Now: now})
		if t.log.Enabled(logx.LevelDebug) {
			t.log.Debug("ongoing call timer", logx.Int64("base_ms", ev.When))
		}
	}
	b.SetCompact(picKey)
	b.SetReopen(true)

	return b.Build()
}
