package settings

import (
	"math"
	"testing"
	"time"

	"islandbridge/internal/config"
	"islandbridge/internal/model"
)

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestSnapshotResolve(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Islands.Global = config.DisplayConfigRaw{
		Float:   boolPtr(false),
		Timeout: strPtr("3s"),
	}
	cfg.Islands.Sources = map[string]config.SourceConfigRaw{
		"com.fast": {DisplayConfigRaw: config.DisplayConfigRaw{Timeout: strPtr("1s")}},
		"com.bare": {},
	}
	s := newSnapshot(cfg)

	tests := []struct {
		name   string
		source string
		want   model.EffectiveDisplayConfig
	}{
		{
			// Source sets nothing: global timeout and float apply, shade
			// falls to the hard default.
			name:   "global fills gaps",
			source: "com.bare",
			want:   model.EffectiveDisplayConfig{Float: false, Shade: true, Timeout: 3 * time.Second},
		},
		{
			name:   "source override wins",
			source: "com.fast",
			want:   model.EffectiveDisplayConfig{Float: false, Shade: true, Timeout: time.Second},
		},
		{
			name:   "unknown source uses global",
			source: "com.other",
			want:   model.EffectiveDisplayConfig{Float: false, Shade: true, Timeout: 3 * time.Second},
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Resolve(tc.source); got != tc.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tc.source, got, tc.want)
			}
		})
	}
}

func TestSnapshotResolveHardDefaults(t *testing.T) {
	t.Parallel()
	s := newSnapshot(&config.Config{})
	want := model.EffectiveDisplayConfig{Float: true, Shade: true, Timeout: 5 * time.Second}
	if got := s.Resolve("com.any"); got != want {
		t.Errorf("Resolve = %+v, want hard defaults %+v", got, want)
	}
}

func TestSnapshotNavLayout(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Islands.Global = config.DisplayConfigRaw{NavRight: strPtr("DISTANCE")}
	cfg.Islands.Sources = map[string]config.SourceConfigRaw{
		"com.maps": {DisplayConfigRaw: config.DisplayConfigRaw{NavLeft: strPtr("ETA")}},
		"com.bad":  {DisplayConfigRaw: config.DisplayConfigRaw{NavLeft: strPtr("SIDEWAYS")}},
	}
	s := newSnapshot(cfg)

	if got := s.NavLayout("com.other"); got != (model.NavLayout{Left: model.NavDistanceETA, Right: model.NavDistance}) {
		t.Errorf("global layout = %+v", got)
	}
	if got := s.NavLayout("com.maps"); got != (model.NavLayout{Left: model.NavETA, Right: model.NavDistance}) {
		t.Errorf("source layout = %+v", got)
	}
	// Unknown stored values resolve to the surrounding layer.
	if got := s.NavLayout("com.bad"); got.Left != model.NavDistanceETA {
		t.Errorf("corrupt nav side = %v, want fallback to default", got.Left)
	}
}

func TestSnapshotSourceIgnored(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Islands.IgnoredSources = []string{"com.vendor.ota", "*telemetry*"}
	s := newSnapshot(cfg)

	tests := []struct {
		source string
		want   bool
	}{
		{"android", true},
		{"com.android.systemui", true},
		{"com.miui.notification.core", true},
		{"com.vendor.ota", true},
		{"com.acme.telemetry.agent", true},
		{"com.vendor.ota.helper", false},
		{"com.app", false},
	}
	for _, tc := range tests {
		if got := s.SourceIgnored(tc.source); got != tc.want {
			t.Errorf("SourceIgnored(%q) = %v, want %v", tc.source, got, tc.want)
		}
	}
}

func TestSnapshotPriorityRank(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Islands.PriorityOrder = []string{"com.dialer", "com.maps", "com.dialer"}
	s := newSnapshot(cfg)

	if got := s.PriorityRank("com.dialer"); got != 0 {
		t.Errorf("rank(com.dialer) = %d, want 0", got)
	}
	if got := s.PriorityRank("com.maps"); got != 1 {
		t.Errorf("rank(com.maps) = %d, want 1", got)
	}
	if got := s.PriorityRank("com.unlisted"); got != math.MaxInt {
		t.Errorf("rank(unlisted) = %d, want MaxInt", got)
	}
}

func TestSnapshotBlockedTermHit(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Islands.BlockedTerms = []string{"Free Prize"}
	cfg.Islands.Sources = map[string]config.SourceConfigRaw{
		"com.shop": {BlockedTerms: []string{"flash sale"}},
	}
	s := newSnapshot(cfg)

	if !s.BlockedTermHit("com.any", "You won a FREE prize!") {
		t.Error("global term should match case-insensitively")
	}
	if !s.BlockedTermHit("com.shop", "Flash Sale ends tonight") {
		t.Error("per-source term should match")
	}
	if s.BlockedTermHit("com.other", "Flash Sale ends tonight") {
		t.Error("per-source term should not leak to other sources")
	}
	if s.BlockedTermHit("com.shop", "Your order shipped") {
		t.Error("clean content should pass")
	}
}

func TestSnapshotTypeEnabled(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Islands.Sources = map[string]config.SourceConfigRaw{
		"com.clock": {Types: []string{"TIMER", "STANDARD"}},
	}
	s := newSnapshot(cfg)

	if !s.TypeEnabled("com.clock", model.TypeTimer) {
		t.Error("listed type should be enabled")
	}
	if s.TypeEnabled("com.clock", model.TypeCall) {
		t.Error("unlisted type should be disabled")
	}
	if !s.TypeEnabled("com.other", model.TypeCall) {
		t.Error("sources without a type list accept everything")
	}
}

func TestSnapshotWidgets(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	cfg.Widgets.Saved = []int{4, 9}
	cfg.Widgets.Configs = map[string]config.WidgetConfigRaw{
		"4": {Size: "LARGE", RenderMode: "SNAPSHOT", Shade: boolPtr(false), Timeout: "10s"},
	}
	s := newSnapshot(cfg)

	if !s.WidgetSaved(4) || !s.WidgetSaved(9) || s.WidgetSaved(5) {
		t.Error("saved widget set mismatch")
	}

	got := s.WidgetConfig(4)
	want := model.WidgetConfig{Size: model.WidgetLarge, RenderMode: model.WidgetSnapshot, Shade: false, Timeout: 10 * time.Second}
	if got != want {
		t.Errorf("WidgetConfig(4) = %+v, want %+v", got, want)
	}

	def := s.WidgetConfig(9)
	if def.Size != model.WidgetMedium || def.RenderMode != model.WidgetInteractive || !def.Shade {
		t.Errorf("WidgetConfig(9) = %+v, want defaults", def)
	}
}

func TestSnapshotPipelineDefaults(t *testing.T) {
	t.Parallel()

	s := newSnapshot(nil)
	if s.Workers() != 2 || s.QueueSize() != 256 {
		t.Errorf("workers/queue = %d/%d, want 2/256", s.Workers(), s.QueueSize())
	}
	if !s.RateLimitEnabled() || s.QuietInterval() != 200*time.Millisecond {
		t.Errorf("rate limit = %v interval %v, want enabled at 200ms", s.RateLimitEnabled(), s.QuietInterval())
	}

	cfg := &config.Config{}
	cfg.Pipeline.Workers = 4
	cfg.Pipeline.QuietInterval = "1s"
	cfg.Pipeline.RateLimit = boolPtr(false)
	s = newSnapshot(cfg)
	if s.Workers() != 4 || s.QuietInterval() != time.Second || s.RateLimitEnabled() {
		t.Errorf("overrides not applied: workers=%d interval=%v ratelimit=%v",
			s.Workers(), s.QuietInterval(), s.RateLimitEnabled())
	}
}
