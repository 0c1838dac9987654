// Package translate turns classified notification events into vendor-neutral
// display payloads. Each semantic type has its own translator; they share
// icon resolution, action extraction, and the payload builder.
package translate

import (
	"encoding/json"

	"islandbridge/internal/model"
)

// PanelText is one side of the expanded island.
type PanelText struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Panel pairs a picture slot with its text.
type Panel struct {
	PicKey string    `json:"pic,omitempty"`
	Text   PanelText `json:"text"`
}

// TimerSpec is a directional timer display. Direction -1 counts down,
// +1 counts up.
type TimerSpec struct {
	Direction int   `json:"direction"`
	Base      int64 `json:"base"`   // unix millis
	Offset    int64 `json:"offset"` // |base - now| at build time
	Now       int64 `json:"now"`
}

// Builder assembles one display payload. The single JSON implementation
// below targets the default sink; a different sink swaps in its own builder
// without touching the translators.
type Builder interface {
	AddPicture(p model.Picture)
	AddAction(a model.ActionDescriptor)

	// SetBaseInfo fills the persistent-shade line.
	SetBaseInfo(title, content, subContent, picKey string, actionKeys []string)

	// SetExpanded fills the expanded island. Either side may be nil.
	SetExpanded(left, right *Panel)

	// SetCompact selects the collapsed-island picture.
	SetCompact(picKey string)
	// SetCompactProgress renders a circular progress ring around the
	// collapsed picture.
	SetCompactProgress(picKey string, percent int, colorARGB string)

	SetProgressBar(percent int, colorARGB, startPicKey, endPicKey string)
	SetProgressBadge(picKey, label string, percent int, colorARGB string)

	SetTimer(t TimerSpec)
	SetCountdown(baseMillis int64, picKey string)

	// SetView embeds a live widget view, optionally wrapped in a fixed-height
	// container (heightDp == 0 passes the view through at original size).
	SetView(v model.ViewRef, heightDp int)
	// SetSnapshot embeds a rasterized widget snapshot by picture key.
	SetSnapshot(picKey string, heightDp int)

	SetTextButtons(actionKeys []string)

	// SetConfig applies the resolved display config. A zero timeout disables
	// auto-dismiss and forces float off.
	SetConfig(cfg model.EffectiveDisplayConfig)
	SetDismissible(b bool)
	SetReopen(b bool)
	SetHideDeco(b bool)

	Build() model.DisplayPayload
}

// Factory creates a builder for one payload. channel groups islands by
// origin; title is the headline fallback.
type Factory func(channel, title string) Builder

// paramDoc is the opaque structured block handed to the sink. Field order is
// fixed so identical content always serializes identically (the dedup hash
// depends on it).
type paramDoc struct {
	Channel string `json:"channel"`
	Title   string `json:"title"`

	Float       bool  `json:"float"`
	Shade       bool  `json:"shade"`
	TimeoutMS   int64 `json:"timeout_ms"`
	Dismissible bool  `json:"dismissible"`
	Reopen      bool  `json:"reopen,omitempty"`
	HideDeco    bool  `json:"hide_deco,omitempty"`

	Base *struct {
		Title      string   `json:"title"`
		Content    string   `json:"content,omitempty"`
		SubContent string   `json:"sub_content,omitempty"`
		PicKey     string   `json:"pic,omitempty"`
		ActionKeys []string `json:"actions,omitempty"`
	} `json:"base,omitempty"`

	Expanded *struct {
		Left  *Panel `json:"left,omitempty"`
		Right *Panel `json:"right,omitempty"`
	} `json:"expanded,omitempty"`

	Compact *struct {
		PicKey  string `json:"pic"`
		Percent *int   `json:"percent,omitempty"`
		Color   string `json:"color,omitempty"`
	} `json:"compact,omitempty"`

	Bar *struct {
		Percent  int    `json:"percent"`
		Color    string `json:"color"`
		StartPic string `json:"start_pic,omitempty"`
		EndPic   string `json:"end_pic,omitempty"`
	} `json:"bar,omitempty"`

	Badge *struct {
		PicKey  string `json:"pic"`
		Label   string `json:"label"`
		Percent int    `json:"percent"`
		Color   string `json:"color"`
	} `json:"badge,omitempty"`

	Timer     *TimerSpec `json:"timer,omitempty"`
	Countdown *struct {
		Base   int64  `json:"base"`
		PicKey string `json:"pic"`
	} `json:"countdown,omitempty"`

	View *struct {
		WidgetID int    `json:"widget_id"`
		Token    string `json:"token"`
		HeightDp int    `json:"height_dp,omitempty"`
	} `json:"view,omitempty"`

	Snapshot *struct {
		PicKey   string `json:"pic"`
		HeightDp int    `json:"height_dp,omitempty"`
	} `json:"snapshot,omitempty"`

	TextButtons []string `json:"text_buttons,omitempty"`

	Actions []model.ActionDescriptor `json:"action_slots,omitempty"`
}

type jsonBuilder struct {
	doc      paramDoc
	pictures []model.Picture
	actions  []model.ActionDescriptor
	view     *model.ViewRef
}

// NewJSONBuilder is the default Factory.
func NewJSONBuilder(channel, title string) Builder {
	b := &jsonBuilder{}
	b.doc.Channel = channel
	b.doc.Title = title
	b.doc.Dismissible = true
	return b
}

func (b *jsonBuilder) AddPicture(p model.Picture) {
	b.pictures = append(b.pictures, p)
}

func (b *jsonBuilder) AddAction(a model.ActionDescriptor) {
	b.actions = append(b.actions, a)
}

func (b *jsonBuilder) SetBaseInfo(title, content, subContent, picKey string, actionKeys []string) {
	b.doc.Base = &struct {
		Title      string   `json:"title"`
		Content    string   `json:"content,omitempty"`
		SubContent string   `json:"sub_content,omitempty"`
		PicKey     string   `json:"pic,omitempty"`
		ActionKeys []string `json:"actions,omitempty"`
	}{Title: title, Content: content, SubContent: subContent, PicKey: picKey, ActionKeys: actionKeys}
}

func (b *jsonBuilder) SetExpanded(left, right *Panel) {
	b.doc.Expanded = &struct {
		Left  *Panel `json:"left,omitempty"`
		Right *Panel `json:"right,omitempty"`
	}{Left: left, Right: right}
}

func (b *jsonBuilder) SetCompact(picKey string) {
	b.doc.Compact = &struct {
		PicKey  string `json:"pic"`
		Percent *int   `json:"percent,omitempty"`
		Color   string `json:"color,omitempty"`
	}{PicKey: picKey}
}

func (b *jsonBuilder) SetCompactProgress(picKey string, percent int, colorARGB string) {
	b.doc.Compact = &struct {
		PicKey  string `json:"pic"`
		Percent *int   `json:"percent,omitempty"`
		Color   string `json:"color,omitempty"`
	}{PicKey: picKey, Percent: &percent, Color: colorARGB}
}

func (b *jsonBuilder) SetProgressBar(percent int, colorARGB, startPicKey, endPicKey string) {
	b.doc.Bar = &struct {
		Percent  int    `json:"percent"`
		Color    string `json:"color"`
		StartPic string `json:"start_pic,omitempty"`
		EndPic   string `json:"end_pic,omitempty"`
	}{Percent: percent, Color: colorARGB, StartPic: startPicKey, EndPic: endPicKey}
}

func (b *jsonBuilder) SetProgressBadge(picKey, label string, percent int, colorARGB string) {
	b.doc.Badge = &struct {
		PicKey  string `json:"pic"`
		Label   string `json:"label"`
		Percent int    `json:"percent"`
		Color   string `json:"color"`
	}{PicKey: picKey, Label: label, Percent: percent, Color: colorARGB}
}

func (b *jsonBuilder) SetTimer(t TimerSpec) {
	b.doc.Timer = &t
}

func (b *jsonBuilder) SetCountdown(baseMillis int64, picKey string) {
	b.doc.Countdown = &struct {
		Base   int64  `json:"base"`
		PicKey string `json:"pic"`
	}{Base: baseMillis, PicKey: picKey}
}

func (b *jsonBuilder) SetView(v model.ViewRef, heightDp int) {
	b.view = &v
	b.doc.View = &struct {
		WidgetID int    `json:"widget_id"`
		Token    string `json:"token"`
		HeightDp int    `json:"height_dp,omitempty"`
	}{WidgetID: v.WidgetID, Token: v.Token, HeightDp: heightDp}
}

func (b *jsonBuilder) SetSnapshot(picKey string, heightDp int) {
	b.doc.Snapshot = &struct {
		PicKey   string `json:"pic"`
		HeightDp int    `json:"height_dp,omitempty"`
	}{PicKey: picKey, HeightDp: heightDp}
}

func (b *jsonBuilder) SetTextButtons(actionKeys []string) {
	b.doc.TextButtons = actionKeys
}

func (b *jsonBuilder) SetConfig(cfg model.EffectiveDisplayConfig) {
	b.doc.TimeoutMS = cfg.Timeout.Milliseconds()
	// A zero timeout would leave a floating island stuck; disable float with it.
	b.doc.Float = cfg.Float && b.doc.TimeoutMS != 0
	b.doc.Shade = cfg.Shade
}

func (b *jsonBuilder) SetDismissible(v bool) { b.doc.Dismissible = v }
func (b *jsonBuilder) SetReopen(v bool)      { b.doc.Reopen = v }
func (b *jsonBuilder) SetHideDeco(v bool)    { b.doc.HideDeco = v }

func (b *jsonBuilder) Build() model.DisplayPayload {
	b.doc.Actions = b.actions
	raw, err := json.Marshal(&b.doc)
	if err != nil {
		// Marshal of a plain struct cannot realistically fail; degrade to an
		// empty param rather than aborting the pipeline.
		raw = []byte("{}")
	}
	return model.DisplayPayload{
		Pictures: b.pictures,
		Actions:  b.actions,
		View:     b.view,
		Param:    raw,
	}
}
