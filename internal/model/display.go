package model

import "time"

// DisplayConfig is a partial per-source or global display configuration.
// Nil fields mean "not set here, fall through".
type DisplayConfig struct {
	Float   *bool
	Shade   *bool
	Timeout *time.Duration
}

// Hard defaults applied when neither the per-source nor the global config
// sets a field.
const (
	DefaultFloat   = true
	DefaultShade   = true
	DefaultTimeout = 5 * time.Second
)

// EffectiveDisplayConfig is a fully resolved configuration. No field is
// optional; every resolver path ends in a concrete value.
type EffectiveDisplayConfig struct {
	Float   bool
	Shade   bool
	Timeout time.Duration
}

// Merge resolves field-wise: c (source override) over global over hard
// defaults.
func (c DisplayConfig) Merge(global DisplayConfig) EffectiveDisplayConfig {
	out := EffectiveDisplayConfig{
		Float:   DefaultFloat,
		Shade:   DefaultShade,
		Timeout: DefaultTimeout,
	}
	if global.Float != nil {
		out.Float = *global.Float
	}
	if global.Shade != nil {
		out.Shade = *global.Shade
	}
	if global.Timeout != nil {
		out.Timeout = *global.Timeout
	}
	if c.Float != nil {
		out.Float = *c.Float
	}
	if c.Shade != nil {
		out.Shade = *c.Shade
	}
	if c.Timeout != nil {
		out.Timeout = *c.Timeout
	}
	return out
}

// NavContent selects what one side of the navigation island shows.
type NavContent string

const (
	NavInstruction NavContent = "INSTRUCTION"
	NavDistance    NavContent = "DISTANCE"
	NavETA         NavContent = "ETA"
	NavDistanceETA NavContent = "DISTANCE_ETA"
	NavNone        NavContent = "NONE"
)

// ParseNavContent falls back to def for unknown stored values.
func ParseNavContent(s string, def NavContent) NavContent {
	switch NavContent(s) {
	case NavInstruction, NavDistance, NavETA, NavDistanceETA, NavNone:
		return NavContent(s)
	default:
		return def
	}
}

// NavLayout is the left/right content pair for navigation rendering.
// Both sides resolve independently of the display config fields.
type NavLayout struct {
	Left  NavContent
	Right NavContent
}

// DefaultNavLayout matches the stock rendering: distance+eta on the left,
// instruction on the right.
func DefaultNavLayout() NavLayout {
	return NavLayout{Left: NavDistanceETA, Right: NavInstruction}
}

// WidgetSize is the requested island preset for a hosted widget.
type WidgetSize string

const (
	WidgetOriginal WidgetSize = "ORIGINAL"
	WidgetSmall    WidgetSize = "SMALL"
	WidgetMedium   WidgetSize = "MEDIUM"
	WidgetLarge    WidgetSize = "LARGE"
	WidgetXLarge   WidgetSize = "XLARGE"
)

func ParseWidgetSize(s string) WidgetSize {
	switch WidgetSize(s) {
	case WidgetOriginal, WidgetSmall, WidgetMedium, WidgetLarge, WidgetXLarge:
		return WidgetSize(s)
	default:
		return WidgetMedium
	}
}

// HeightDp returns the container height for the preset. ORIGINAL has no
// wrapper; its snapshot height matches MEDIUM.
func (s WidgetSize) HeightDp() int {
	switch s {
	case WidgetSmall:
		return 100
	case WidgetLarge:
		return 280
	case WidgetXLarge:
		return 380
	default:
		return 180
	}
}

// WidgetRenderMode selects between passing the live view through and
// embedding a rasterized snapshot.
type WidgetRenderMode string

const (
	WidgetInteractive WidgetRenderMode = "INTERACTIVE"
	WidgetSnapshot    WidgetRenderMode = "SNAPSHOT"
)

func ParseWidgetRenderMode(s string) WidgetRenderMode {
	switch WidgetRenderMode(s) {
	case WidgetInteractive, WidgetSnapshot:
		return WidgetRenderMode(s)
	default:
		return WidgetInteractive
	}
}

// WidgetConfig is the per-widget slice of settings.
type WidgetConfig struct {
	Size       WidgetSize
	RenderMode WidgetRenderMode
	Shade      bool
	Timeout    time.Duration
}
