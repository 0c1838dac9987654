package settings

import (
	"math"
	"strconv"
	"strings"
	"time"

	"islandbridge/internal/config"
	"islandbridge/internal/model"
)

// sourceSettings is the resolved per-source slice of a snapshot.
type sourceSettings struct {
	display model.DisplayConfig

	navLeft  *model.NavContent
	navRight *model.NavContent

	blockedTerms []string // lowercased

	// types is nil when all types are enabled for the source.
	types map[model.NotificationType]bool
}

// Snapshot is an immutable resolved view of the config. The pipeline reads
// whole snapshots; the cache swaps them atomically on config updates, so no
// field-level locking is needed.
type Snapshot struct {
	limitMode model.LimitMode

	allowed map[string]struct{}
	ignored []ignoreRule

	priority map[string]int

	blockedTerms []string // lowercased, global

	global    model.DisplayConfig
	globalNav model.NavLayout
	sources   map[string]sourceSettings

	keywords Keywords

	quietInterval time.Duration
	rateLimit     bool
	workers       int
	queueSize     int

	savedWidgets  map[int]struct{}
	widgetConfigs map[int]model.WidgetConfig
}

type ignoreRule struct {
	pattern   string
	substring bool
}

// defaultIgnoredSources are skipped before any other check. Entries wrapped
// in '*' match as substrings, otherwise exactly.
var defaultIgnoredSources = []string{"android", "com.android.systemui", "*miui.notification*"}

func newSnapshot(cfg *config.Config) *Snapshot {
	s := &Snapshot{
		limitMode:     model.LimitMostRecent,
		allowed:       map[string]struct{}{},
		priority:      map[string]int{},
		sources:       map[string]sourceSettings{},
		globalNav:     model.DefaultNavLayout(),
		keywords:      DefaultKeywords(),
		quietInterval: 200 * time.Millisecond,
		rateLimit:     true,
		workers:       2,
		queueSize:     256,
		savedWidgets:  map[int]struct{}{},
		widgetConfigs: map[int]model.WidgetConfig{},
	}
	s.ignored = compileIgnoreRules(defaultIgnoredSources)
	if cfg == nil {
		return s
	}

	s.limitMode = model.ParseLimitMode(cfg.Islands.LimitMode)

	for _, src := range cfg.Islands.AllowedSources {
		if src = strings.TrimSpace(src); src != "" {
			s.allowed[src] = struct{}{}
		}
	}
	if len(cfg.Islands.IgnoredSources) > 0 {
		s.ignored = compileIgnoreRules(append(append([]string(nil), defaultIgnoredSources...), cfg.Islands.IgnoredSources...))
	}
	for i, src := range cfg.Islands.PriorityOrder {
		if _, seen := s.priority[src]; !seen {
			s.priority[src] = i
		}
	}
	s.blockedTerms = lowerTerms(cfg.Islands.BlockedTerms)

	s.global = rawDisplay(cfg.Islands.Global)
	s.globalNav = model.NavLayout{
		Left:  parseNavSide(cfg.Islands.Global.NavLeft, model.NavDistanceETA),
		Right: parseNavSide(cfg.Islands.Global.NavRight, model.NavInstruction),
	}

	for id, raw := range cfg.Islands.Sources {
		ss := sourceSettings{
			display:      rawDisplay(raw.DisplayConfigRaw),
			blockedTerms: lowerTerms(raw.BlockedTerms),
		}
		if raw.NavLeft != nil {
			v := model.ParseNavContent(*raw.NavLeft, s.globalNav.Left)
			ss.navLeft = &v
		}
		if raw.NavRight != nil {
			v := model.ParseNavContent(*raw.NavRight, s.globalNav.Right)
			ss.navRight = &v
		}
		if len(raw.Types) > 0 {
			ss.types = make(map[model.NotificationType]bool, len(raw.Types))
			for _, t := range raw.Types {
				ss.types[model.ParseNotificationType(t)] = true
			}
		}
		s.sources[id] = ss
	}

	if cfg.Keywords != nil {
		applyKeywordOverrides(&s.keywords, cfg.Keywords)
	}

	if cfg.Pipeline.Workers > 0 {
		s.workers = cfg.Pipeline.Workers
	}
	if cfg.Pipeline.QueueSize > 0 {
		s.queueSize = cfg.Pipeline.QueueSize
	}
	if d, err := config.ParseDurationField("pipeline.quiet_interval", cfg.Pipeline.QuietInterval); err == nil && d > 0 {
		s.quietInterval = d
	}
	if cfg.Pipeline.RateLimit != nil {
		s.rateLimit = *cfg.Pipeline.RateLimit
	}

	for _, id := range cfg.Widgets.Saved {
		s.savedWidgets[id] = struct{}{}
	}
	for key, raw := range cfg.Widgets.Configs {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		wc := model.WidgetConfig{
			Size:       model.ParseWidgetSize(raw.Size),
			RenderMode: model.ParseWidgetRenderMode(raw.RenderMode),
			Shade:      true,
		}
		if raw.Shade != nil {
			wc.Shade = *raw.Shade
		}
		if d, err := config.ParseDurationField("widgets.timeout", raw.Timeout); err == nil {
			wc.Timeout = d
		}
		s.widgetConfigs[id] = wc
	}

	return s
}

func compileIgnoreRules(patterns []string) []ignoreRule {
	rules := make([]ignoreRule, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "*") && strings.HasSuffix(p, "*") && len(p) > 2 {
			rules = append(rules, ignoreRule{pattern: strings.Trim(p, "*"), substring: true})
		} else {
			rules = append(rules, ignoreRule{pattern: p})
		}
	}
	return rules
}

func rawDisplay(raw config.DisplayConfigRaw) model.DisplayConfig {
	out := model.DisplayConfig{Float: raw.Float, Shade: raw.Shade}
	if raw.Timeout != nil {
		if d, err := config.ParseDurationField("timeout", *raw.Timeout); err == nil {
			out.Timeout = &d
		}
	}
	return out
}

func parseNavSide(raw *string, def model.NavContent) model.NavContent {
	if raw == nil {
		return def
	}
	return model.ParseNavContent(*raw, def)
}

func lowerTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func applyKeywordOverrides(kw *Keywords, raw *config.KeywordsConfig) {
	if len(raw.Answer) > 0 {
		kw.Answer = raw.Answer
	}
	if len(raw.HangUp) > 0 {
		kw.HangUp = raw.HangUp
	}
	if len(raw.Speaker) > 0 {
		kw.Speaker = raw.Speaker
	}
	if len(raw.Arrival) > 0 {
		kw.Arrival = raw.Arrival
	}
	if len(raw.Finish) > 0 {
		kw.Finish = raw.Finish
	}
	if len(raw.Junk) > 0 {
		kw.Junk = raw.Junk
	}
}

// ---- read API ----

func (s *Snapshot) LimitMode() model.LimitMode { return s.limitMode }

func (s *Snapshot) Keywords() Keywords { return s.keywords }

func (s *Snapshot) QuietInterval() time.Duration { return s.quietInterval }

func (s *Snapshot) RateLimitEnabled() bool { return s.rateLimit }

func (s *Snapshot) Workers() int { return s.workers }

func (s *Snapshot) QueueSize() int { return s.queueSize }

// SourceIgnored reports platform noise that is skipped before any other
// check.
func (s *Snapshot) SourceIgnored(sourceID string) bool {
	for _, r := range s.ignored {
		if r.substring {
			if strings.Contains(sourceID, r.pattern) {
				return true
			}
		} else if sourceID == r.pattern {
			return true
		}
	}
	return false
}

// SourceAllowed reports whether the user enabled the source.
func (s *Snapshot) SourceAllowed(sourceID string) bool {
	_, ok := s.allowed[sourceID]
	return ok
}

// TypeEnabled reports whether the source accepts islands of the given type.
// Sources without an explicit set accept all types.
func (s *Snapshot) TypeEnabled(sourceID string, t model.NotificationType) bool {
	ss, ok := s.sources[sourceID]
	if !ok || ss.types == nil {
		return true
	}
	return ss.types[t]
}

// PriorityRank returns the source's index in the priority order. Absent
// sources rank lowest (math.MaxInt).
func (s *Snapshot) PriorityRank(sourceID string) int {
	if r, ok := s.priority[sourceID]; ok {
		return r
	}
	return math.MaxInt
}

// BlockedTermHit checks the global and per-source blocked-term lists against
// the event content (case-insensitive substring).
func (s *Snapshot) BlockedTermHit(sourceID, content string) bool {
	content = strings.ToLower(content)
	for _, term := range s.blockedTerms {
		if strings.Contains(content, term) {
			return true
		}
	}
	if ss, ok := s.sources[sourceID]; ok {
		for _, term := range ss.blockedTerms {
			if strings.Contains(content, term) {
				return true
			}
		}
	}
	return false
}

// Resolve merges the per-source display override over the global config over
// the hard defaults. The result never has unset fields.
func (s *Snapshot) Resolve(sourceID string) model.EffectiveDisplayConfig {
	src := model.DisplayConfig{}
	if ss, ok := s.sources[sourceID]; ok {
		src = ss.display
	}
	return src.Merge(s.global)
}

// NavLayout resolves the two-sided navigation layout, each side
// independently: source override, then global, then defaults.
func (s *Snapshot) NavLayout(sourceID string) model.NavLayout {
	out := s.globalNav
	if ss, ok := s.sources[sourceID]; ok {
		if ss.navLeft != nil {
			out.Left = *ss.navLeft
		}
		if ss.navRight != nil {
			out.Right = *ss.navRight
		}
	}
	return out
}

// WidgetSaved reports whether the widget's update events should trigger a
// re-post.
func (s *Snapshot) WidgetSaved(widgetID int) bool {
	_, ok := s.savedWidgets[widgetID]
	return ok
}

// WidgetConfig returns the per-widget config, defaulted when absent.
func (s *Snapshot) WidgetConfig(widgetID int) model.WidgetConfig {
	if wc, ok := s.widgetConfigs[widgetID]; ok {
		return wc
	}
	return model.WidgetConfig{Size: model.WidgetMedium, RenderMode: model.WidgetInteractive, Shade: true}
}
