package model

import (
	"hash/fnv"
	"time"
)

// Host-supplied category tags. The host is free to send anything; only the
// values below carry meaning for classification.
const (
	CategoryCall       = "call"
	CategoryNavigation = "navigation"
	CategoryAlarm      = "alarm"
	CategoryStopwatch  = "stopwatch"
	CategoryTransport  = "transport"
)

// NotificationType is the semantic type assigned to an event by the
// classifier. It is recomputed on every update of the same tracked key.
type NotificationType string

const (
	TypeCall       NotificationType = "CALL"
	TypeNavigation NotificationType = "NAVIGATION"
	TypeTimer      NotificationType = "TIMER"
	TypeProgress   NotificationType = "PROGRESS"
	TypeMedia      NotificationType = "MEDIA"
	TypeStandard   NotificationType = "STANDARD"
)

// AllTypes lists every notification type. Used as the default per-source
// enabled set.
func AllTypes() []NotificationType {
	return []NotificationType{TypeCall, TypeNavigation, TypeTimer, TypeProgress, TypeMedia, TypeStandard}
}

// ParseNotificationType maps a stored string onto a type, falling back to
// STANDARD for unknown values.
func ParseNotificationType(s string) NotificationType {
	switch NotificationType(s) {
	case TypeCall, TypeNavigation, TypeTimer, TypeProgress, TypeMedia, TypeStandard:
		return NotificationType(s)
	default:
		return TypeStandard
	}
}

// Progress carries the host's progress fields. Max == 0 with Indeterminate
// set means "busy, unknown total".
type Progress struct {
	Current       int  `json:"current"`
	Max           int  `json:"max"`
	Indeterminate bool `json:"indeterminate"`
}

func (p Progress) Present() bool { return p.Max > 0 || p.Indeterminate }

// Percent returns completion in 0..100. Zero when Max is unknown.
func (p Progress) Percent() int {
	if p.Max <= 0 {
		return 0
	}
	return int(float64(p.Current) / float64(p.Max) * 100)
}

// Action is a host-provided notification action. InvokeRef is an opaque
// handle the sink uses to trigger it; the pipeline never dereferences it.
type Action struct {
	Title     string `json:"title"`
	IconRef   string `json:"icon_ref,omitempty"`
	InvokeRef string `json:"invoke_ref,omitempty"`
}

// NotificationEvent is the raw event delivered by the host feed.
// All fields are read-only to the pipeline.
type NotificationEvent struct {
	Key      string
	SourceID string
	// SourceName is the source's human-readable display name, when the host
	// knows it. Used only by the junk filter.
	SourceName string

	Title   string
	Text    string
	SubText string
	BigText string

	Category     string
	TemplateHint string

	// When is the timestamp the event claims to represent (unix millis).
	// For timers this is the chronometer base.
	When int64

	Progress        Progress
	ShowChronometer bool
	GroupSummary    bool

	Actions []Action

	// Renderable resource references, in preference order.
	PictureRef   string
	LargeIconRef string
	SmallIconRef string

	IsRemoval bool
}

// ActiveIsland tracks one admitted item for the lifetime of its key.
type ActiveIsland struct {
	ID       int
	Type     NotificationType
	PostTime time.Time
	SourceID string

	// Last observed text fields, for cheap change detection.
	LastTitle   string
	LastText    string
	LastSubText string

	// LastContentHash always reflects the payload actually delivered to the
	// sink for this key, never a suppressed candidate.
	LastContentHash uint64

	// ExpireAt is non-zero when the resolved timeout schedules auto-dismiss.
	ExpireAt time.Time
}

// IslandID derives the stable sink id for a tracked key.
func IslandID(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() & 0x7fffffff)
}

// WidgetIslandID maps a widget id into the reserved 9000+ range so widget
// islands never collide with notification islands.
func WidgetIslandID(widgetID int) int { return 9000 + widgetID }

// LimitMode selects the eviction strategy once MaxIslands is reached.
type LimitMode string

const (
	LimitFirstCome  LimitMode = "FIRST_COME"
	LimitMostRecent LimitMode = "MOST_RECENT"
	LimitPriority   LimitMode = "PRIORITY"
)

// ParseLimitMode tolerates corrupt stored values by falling back to
// MOST_RECENT.
func ParseLimitMode(s string) LimitMode {
	switch LimitMode(s) {
	case LimitFirstCome, LimitMostRecent, LimitPriority:
		return LimitMode(s)
	default:
		return LimitMostRecent
	}
}

// MaxIslands bounds the number of concurrently displayed islands.
const MaxIslands = 9
