package pipeline

import (
	"strings"

	"islandbridge/internal/model"
)

// navSourceHints are substrings that identify mapping apps by their source
// id when the host forgets to tag the category.
var navSourceHints = []string{
	"maps", "navigat", "waze", "osmand", "here.", "sygic", "tomtom", "mapy",
}

func looksLikeNavSource(sourceID string) bool {
	s := strings.ToLower(sourceID)
	for _, h := range navSourceHints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

// Classify assigns the semantic type. First match wins; the ordering is
// load-bearing (a call with a progress bar is a CALL, not PROGRESS). Pure
// function, recomputed on every update of the same key.
func Classify(ev model.NotificationEvent) model.NotificationType {
	hint := strings.ToLower(ev.TemplateHint)
	switch {
	case ev.Category == model.CategoryCall || strings.Contains(hint, "call"):
		return model.TypeCall
	case ev.Category == model.CategoryNavigation || looksLikeNavSource(ev.SourceID):
		return model.TypeNavigation
	case (ev.ShowChronometer || ev.Category == model.CategoryAlarm || ev.Category == model.CategoryStopwatch) && ev.When > 0:
		return model.TypeTimer
	case strings.Contains(hint, "media") || ev.Category == model.CategoryTransport:
		return model.TypeMedia
	case ev.Progress.Max > 0 || ev.Progress.Indeterminate:
		return model.TypeProgress
	default:
		return model.TypeStandard
	}
}
