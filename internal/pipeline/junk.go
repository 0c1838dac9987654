package pipeline

import (
	"strings"

	"islandbridge/internal/model"
)

// junkExempt reports whether the event is shielded from the sparse-text
// rules. Calls, navigation, media, and anything with live progress may
// legitimately carry almost no text.
func junkExempt(ev model.NotificationEvent) bool {
	switch ev.Category {
	case model.CategoryCall, model.CategoryNavigation, model.CategoryTransport:
		return true
	}
	if ev.Progress.Present() {
		return true
	}
	return strings.Contains(strings.ToLower(ev.TemplateHint), "media")
}

// IsJunk decides whether a non-removal event should be discarded before it
// touches the island table. Rules run in order, cheapest first.
func IsJunk(ev model.NotificationEvent, junkPhrases, blockedTerms []string) bool {
	title := strings.TrimSpace(ev.Title)
	text := strings.TrimSpace(ev.Text)
	sub := strings.TrimSpace(ev.SubText)

	if !junkExempt(ev) {
		if title == "" && text == "" && sub == "" {
			return true
		}
		// Placeholder artifacts: text that just repeats the source id.
		if title == ev.SourceID || text == ev.SourceID {
			return true
		}
		if ev.SourceName != "" && title == ev.SourceName && text == "" {
			return true
		}
		if matchesPhrase(title, junkPhrases) || matchesPhrase(text, junkPhrases) {
			return true
		}
	}

	if ev.GroupSummary {
		return true
	}

	// Blocked terms last; term lists can be long.
	if len(blockedTerms) > 0 {
		combined := strings.ToLower(title + " " + text)
		for _, term := range blockedTerms {
			if term == "" {
				continue
			}
			if strings.Contains(combined, strings.ToLower(term)) {
				return true
			}
		}
	}
	return false
}

func matchesPhrase(s string, phrases []string) bool {
	if s == "" {
		return false
	}
	ls := strings.ToLower(s)
	for _, p := range phrases {
		if p != "" && strings.Contains(ls, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
