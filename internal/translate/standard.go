package translate

import (
	"strings"

	"islandbridge/internal/model"
	logx "islandbridge/pkg/logx"
)

// StandardTranslator is the catch-all renderer: plain notifications and
// media sessions. Media events keep their transport controls as icon
// buttons; everything else shows text actions.
type StandardTranslator struct {
	base
}

func NewStandardTranslator(factory Factory, log logx.Logger) *StandardTranslator {
	return &StandardTranslator{base: newBase(factory, log)}
}

func isMedia(ev model.NotificationEvent) bool {
	hint := strings.ToLower(ev.TemplateHint)
	return strings.Contains(hint, "media") || ev.Category == model.CategoryTransport
}

func (t *StandardTranslator) Translate(ev model.NotificationEvent, picKey string, tc Context) model.DisplayPayload {
	title := collapseLine(ev.Title)
	text := collapseLine(ev.Text)
	if title == "" {
		title, text = text, ""
	}
	sub := collapseLine(ev.SubText)

	b := t.newBuilder(ev, title)
	b.SetConfig(tc.Config)
	b.AddPicture(resolveIcon(ev, picKey))

	media := isMedia(ev)
	mode := modeText
	if media {
		// Transport controls render as round icon buttons.
		mode = modeIcon
	}
	keys := addActions(b, extractActions(ev, mode))

	// Content line: media gets its label, otherwise join text and subtext.
	content := text
	switch {
	case media:
		content = "Now Playing"
		if text != "" {
			content = text
		}
	case text != "" && sub != "":
		content = text + " • " + sub
	case text == "":
		content = sub
	}
	b.SetBaseInfo(title, content, sub, picKey, keys)

	// Expanded: icon left, text right. BigText wins over text when it
	// actually adds something.
	body := text
	if big := collapseLine(ev.BigText); len(big) > len(body) {
		body = big
	}
	b.SetExpanded(
		&Panel{PicKey: picKey, Text: PanelText{Primary: title}},
		&Panel{Text: PanelText{Primary: body, Secondary: sub}},
	)
	b.SetCompact(picKey)
	if media {
		b.SetReopen(true)
	}

	if t.log.Enabled(logx.LevelTrace) {
		t.log.Trace("standard translated",
			logx.String("source", ev.SourceID),
			logx.Bool("media", media),
		)
	}
	return b.Build()
}
