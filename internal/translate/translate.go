// Package translate turns classified notification events into display
// payloads. One translator per notification type; all of them speak
// through the Builder so the wire shape stays in one place.
package translate

import (
	"islandbridge/internal/model"
	"islandbridge/internal/widget"
	logx "islandbridge/pkg/logx"
)

// Translator renders one event into a payload. picKey is the primary
// picture slot the caller reserved for the source icon.
type Translator interface {
	Translate(ev model.NotificationEvent, picKey string, tc Context) model.DisplayPayload
}

// Set holds one translator per type plus the widget renderer.
type Set struct {
	call     *CallTranslator
	nav      *NavTranslator
	timer    *TimerTranslator
	progress *ProgressTranslator
	standard *StandardTranslator

	Widget *WidgetTranslator
}

// NewSet wires the default translators. factory may be nil for the JSON
// builder; provider may be nil when widget hosting is disabled.
func NewSet(factory Factory, provider widget.Provider, log logx.Logger) *Set {
	s := &Set{
		call:     NewCallTranslator(factory, log),
		nav:      NewNavTranslator(factory, log),
		timer:    NewTimerTranslator(factory, log),
		progress: NewProgressTranslator(factory, log),
		standard: NewStandardTranslator(factory, log),
	}
	if provider != nil {
		s.Widget = NewWidgetTranslator(factory, provider, log)
	}
	return s
}

// ForType returns the translator for the classified type. Unknown types
// fall through to the standard renderer.
func (s *Set) ForType(t model.NotificationType) Translator {
	switch t {
	case model.TypeCall:
		return s.call
	case model.TypeNavigation:
		return s.nav
	case model.TypeTimer:
		return s.timer
	case model.TypeProgress:
		return s.progress
	default:
		return s.standard
	}
}
