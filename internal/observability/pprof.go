// Package observability hosts the optional pprof HTTP server.
package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"sync"
	"time"

	"islandbridge/internal/config"
	logx "islandbridge/pkg/logx"
)

// PprofService serves the runtime profiling endpoints. Disabled by default;
// non-loopback binds require a token or an explicit insecure opt-in.
type PprofService struct {
	mu  sync.Mutex
	log logx.Logger
	cfg pprofSettings

	ln  net.Listener
	srv *http.Server
}

type pprofSettings struct {
	enabled       bool
	addr          string
	prefix        string
	token         string
	allowInsecure bool
	readTimeout   time.Duration
	writeTimeout  time.Duration
}

func NewPprof(cfg config.PprofConfig, log logx.Logger) *PprofService {
	return &PprofService{log: log, cfg: settingsFrom(cfg)}
}

func settingsFrom(cfg config.PprofConfig) pprofSettings {
	rt, _ := config.ParseDurationField("pprof.read_timeout", cfg.ReadTimeout)
	wt, _ := config.ParseDurationField("pprof.write_timeout", cfg.WriteTimeout)
	return pprofSettings{
		enabled:       cfg.Enabled,
		addr:          strings.TrimSpace(cfg.Addr),
		prefix:        normalizePrefix(cfg.Prefix),
		token:         strings.TrimSpace(cfg.Token),
		allowInsecure: cfg.AllowInsecure,
		readTimeout:   rt,
		writeTimeout:  wt,
	}
}

// Apply starts, stops, or restarts the server to match cfg. Safe during
// config hot reload.
func (s *PprofService) Apply(ctx context.Context, cfg config.PprofConfig) {
	next := settingsFrom(cfg)
	s.mu.Lock()
	prev := s.cfg
	running := s.srv != nil
	s.cfg = next
	s.mu.Unlock()

	switch {
	case !next.enabled:
		if running {
			s.Stop(ctx)
		}
	case !running:
		s.Start(ctx)
	case prev != next:
		s.Stop(ctx)
		s.Start(ctx)
	}
}

func (s *PprofService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil || !s.cfg.enabled {
		return
	}
	cur := s.cfg

	addr := cur.addr
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	if !cur.allowInsecure && cur.token == "" && !isLoopbackAddr(addr) {
		s.log.Error("pprof refused to start: non-loopback addr requires token or allow_insecure",
			logx.String("addr", addr))
		return
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.log.Error("pprof listen failed", logx.String("addr", addr), logx.Err(err))
		return
	}

	prefix := cur.prefix
	base := strings.TrimSuffix(prefix, "/")
	mux := http.NewServeMux()
	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withAuth(cur.token, h) }

	mux.HandleFunc("/healthz", wrap(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	mux.HandleFunc(prefix, wrap(pprofIndexAt(prefix)))
	mux.HandleFunc(base+"/cmdline", wrap(hpprof.Cmdline))
	mux.HandleFunc(base+"/profile", wrap(hpprof.Profile))
	mux.HandleFunc(base+"/symbol", wrap(hpprof.Symbol))
	mux.HandleFunc(base+"/trace", wrap(hpprof.Trace))
	if base != "" {
		mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, prefix, http.StatusPermanentRedirect)
		})
	}

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  cur.readTimeout,
		WriteTimeout: cur.writeTimeout,
	}
	s.ln = ln
	s.srv = srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("pprof server stopped with error", logx.Err(err))
		}
	}()
	s.log.Info("pprof started",
		logx.String("addr", ln.Addr().String()),
		logx.String("prefix", prefix),
		logx.Bool("token_set", cur.token != ""),
	)
	_ = ctx
}

func (s *PprofService) Stop(ctx context.Context) {
	s.mu.Lock()
	srv := s.srv
	ln := s.ln
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	if ln != nil {
		_ = ln.Close()
	}
	_ = srv.Shutdown(ctx)
	_ = srv.Close()
	s.log.Info("pprof stopped")
}

func withAuth(token string, h http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("token"); got != "" {
			if got == token {
				h(w, r)
				return
			}
			unauthorized(w)
			return
		}
		if ah := r.Header.Get("Authorization"); ah != "" {
			const p = "Bearer "
			if strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == token {
				h(w, r)
				return
			}
		}
		unauthorized(w)
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func normalizePrefix(prefix string) string {
	p := strings.TrimSpace(prefix)
	if p == "" {
		p = "/debug/pprof/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

// hpprof.Index assumes requests rooted at /debug/pprof/; rewrite the path
// so custom prefixes work without forking net/http/pprof.
func pprofIndexAt(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suffix := strings.TrimPrefix(r.URL.Path, prefix)
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/debug/pprof/" + suffix
		hpprof.Index(w, r2)
	}
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
