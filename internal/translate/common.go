package translate

import (
	"fmt"
	"strings"
	"time"

	"islandbridge/internal/model"
	"islandbridge/internal/settings"
	logx "islandbridge/pkg/logx"
)

// Accent colors shared across translators.
const (
	colorRed   = "#FF3B30"
	colorGreen = "#34C759"
	colorBlue  = "#007AFF"
	colorWhite = "#FFFFFF"
)

// Well-known picture keys.
const (
	hiddenPixelKey = "hidden_pixel"
	navStartKey    = "nav_start_icon"
	navEndKey      = "nav_end_icon"
	checkGlyphKey  = "check_glyph"
)

// Built-in resource refs served by the sink.
const (
	fallbackIconRef = "builtin:launcher"
	checkGlyphRef   = "builtin:check_circle"
	navStartRef     = "builtin:nav_start"
	navEndRef       = "builtin:nav_end"
	transparentRef  = "builtin:transparent"
)

// Context carries the per-event inputs every translator needs. Now is
// injected so elapsed/countdown math is deterministic under test.
type Context struct {
	Config    model.EffectiveDisplayConfig
	Keywords  settings.Keywords
	NavLayout model.NavLayout
	Now       time.Time
}

func (c Context) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// base bundles what all translators share.
type base struct {
	factory Factory
	log     logx.Logger
}

func newBase(factory Factory, log logx.Logger) base {
	if factory == nil {
		factory = NewJSONBuilder
	}
	return base{factory: factory, log: log}
}

func (b base) newBuilder(ev model.NotificationEvent, title string) Builder {
	return b.factory("bridge_"+ev.SourceID, title)
}

// resolveIcon walks the preference chain: explicit picture, large icon,
// small icon, the source's own app icon, then the built-in fallback.
// It never fails; the worst case is the fallback glyph.
func resolveIcon(ev model.NotificationEvent, picKey string) model.Picture {
	switch {
	case ev.PictureRef != "":
		return model.Picture{Key: picKey, ResourceRef: ev.PictureRef}
	case ev.LargeIconRef != "":
		return model.Picture{Key: picKey, ResourceRef: ev.LargeIconRef}
	case ev.SmallIconRef != "":
		return model.Picture{Key: picKey, ResourceRef: ev.SmallIconRef}
	case ev.SourceID != "":
		return model.Picture{Key: picKey, ResourceRef: "app:" + ev.SourceID}
	default:
		return model.Picture{Key: picKey, ResourceRef: fallbackIconRef}
	}
}

func transparentPicture(key string) model.Picture {
	return model.Picture{Key: key, ResourceRef: transparentRef}
}

// actionDisplayMode controls how extracted actions render.
type actionDisplayMode int

const (
	// modeBoth keeps title and icon.
	modeBoth actionDisplayMode = iota
	// modeIcon clears the title so the slot renders as a round button.
	modeIcon
	// modeText keeps the title; the icon is attached only when the title is
	// empty so the slot never renders blank.
	modeText
)

// maxActions is the most action slots any island surfaces.
const maxActions = 3

type bridgeAction struct {
	desc model.ActionDescriptor
	pic  *model.Picture
}

// actionKey derives a stable per-event slot key.
func actionKey(ev model.NotificationEvent, index int) string {
	return fmt.Sprintf("act_%d_%d", model.IslandID(ev.Key), index)
}

// extractActions converts host actions into descriptor/picture pairs,
// capped at maxActions.
func extractActions(ev model.NotificationEvent, mode actionDisplayMode) []bridgeAction {
	if len(ev.Actions) == 0 {
		return nil
	}
	out := make([]bridgeAction, 0, maxActions)
	for i, a := range ev.Actions {
		if len(out) >= maxActions {
			break
		}
		key := actionKey(ev, i)

		title := a.Title
		if mode == modeIcon {
			title = ""
		}

		var pic *model.Picture
		iconKey := ""
		needIcon := mode == modeIcon || mode == modeBoth || (mode == modeText && strings.TrimSpace(a.Title) == "")
		if needIcon && a.IconRef != "" {
			iconKey = key + "_icon"
			pic = &model.Picture{Key: iconKey, ResourceRef: a.IconRef}
		}

		out = append(out, bridgeAction{
			desc: model.ActionDescriptor{
				Key:       key,
				Title:     title,
				IconKey:   iconKey,
				InvokeRef: a.InvokeRef,
			},
			pic: pic,
		})
	}
	return out
}

func addActions(b Builder, actions []bridgeAction) []string {
	keys := make([]string, 0, len(actions))
	for _, a := range actions {
		b.AddAction(a.desc)
		if a.pic != nil {
			b.AddPicture(*a.pic)
		}
		keys = append(keys, a.desc.Key)
	}
	return keys
}

// containsAny reports whether s contains any of the terms,
// case-insensitively.
func containsAny(s string, terms []string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, t := range terms {
		if t == "" {
			continue
		}
		if strings.Contains(s, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func collapseLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
