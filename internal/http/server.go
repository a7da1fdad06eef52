package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pocketbook/internal/avatar"
	"pocketbook/internal/cache"
	"pocketbook/internal/core"
	"pocketbook/internal/log"
	"pocketbook/internal/session"
	"pocketbook/internal/store"
	"pocketbook/internal/summary"
	appweb "pocketbook/web"
)

// TransactionParser turns free text into a transaction draft, nil on failure.
type TransactionParser interface {
	ParseTransaction(ctx context.Context, text string) *core.Transaction
}

// Server serves the web UI on top of the store facade. All persistence goes
// through the facade; the server never knows which backend is behind it.
type Server struct {
	http.Server

	store    store.Store
	sessions *session.Manager
	parser   TransactionParser
	avatars  avatar.Storage

	templates *template.Template

	logger       *log.StructuredLogger
	rateLimiter  *rateLimiter
	metrics      *securityMetrics
	summaryCache *cache.LRUCache[summary.Summary]
	cacheManager *cache.Manager

	// Latest pushed snapshot per logged-in account, fed by the facade
	// subscription. Rendering always uses the freshest push when one exists.
	snapMu    sync.Mutex
	snapshots map[string]store.Snapshot
	watchers  map[string]context.CancelFunc

	shutdownOnce sync.Once
}

// Options carries the optional collaborators. Parser and Avatars may be nil;
// the matching features degrade to manual entry and no uploads.
type Options struct {
	Parser    TransactionParser
	Avatars   avatar.Storage
	AvatarDir string // served under /avatars/ when non-empty

	// POST requests allowed per client IP per minute; zero means the default.
	RateLimitPerMinute int
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, st store.Store, sessions *session.Manager, opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:        st,
		sessions:     sessions,
		parser:       opts.Parser,
		avatars:      opts.Avatars,
		logger:       log.NewStructuredLogger(log.New(log.Config{Component: log.ComponentHTTP})),
		rateLimiter:  newRateLimiter(opts.RateLimitPerMinute),
		metrics:      &securityMetrics{},
		summaryCache: cache.NewLRUCache[summary.Summary](200, 30*time.Second),
		cacheManager: cache.NewManager(),
		snapshots:    make(map[string]store.Snapshot),
		watchers:     make(map[string]context.CancelFunc),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Uploaded avatars, local backend only.
	if opts.AvatarDir != "" {
		mux.Handle("/avatars/", http.StripPrefix("/avatars/",
			http.FileServer(http.Dir(opts.AvatarDir))))
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("/logout", s.withSecurityHeaders(s.handleLogout))

	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("/transactions/select", s.withSecurityHeaders(s.handleSelect))
	mux.HandleFunc("/transactions/update", s.withSecurityHeaders(s.handleUpdateTransaction))
	mux.HandleFunc("/transactions/delete", s.withSecurityHeaders(s.handleRequestDelete))
	mux.HandleFunc("/transactions/delete/confirm", s.withSecurityHeaders(s.handleConfirmDelete))
	mux.HandleFunc("/transactions/cancel", s.withSecurityHeaders(s.handleCancel))
	mux.HandleFunc("/parse", s.withSecurityHeaders(s.handleParse))

	// UI partials
	mux.HandleFunc("/ui/transactions", s.withSecurityHeaders(s.handleTransactionList))
	mux.HandleFunc("/ui/edit", s.withSecurityHeaders(s.handleEditModal))
	mux.HandleFunc("/ui/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("/api/charts", s.withSecurityHeaders(s.handleChartData))

	mux.HandleFunc("/profile", s.withSecurityHeaders(s.handleProfile))
	mux.HandleFunc("/profile/avatar", s.withSecurityHeaders(s.handleAvatarUpload))

	return s
}

// watchAccount subscribes to the account's snapshot pushes. The freshest
// snapshot replaces the previous one; there are no deltas.
func (s *Server) watchAccount(accountID string) {
	s.snapMu.Lock()
	if _, ok := s.watchers[accountID]; ok {
		s.snapMu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.watchers[accountID] = cancel
	s.snapMu.Unlock()

	sub, err := s.store.SubscribeTransactions(ctx, accountID)
	if err != nil {
		slog.Error("Subscribe failed", "error", err, "account_id", accountID)
		s.stopWatching(accountID)
		return
	}

	go func() {
		for snap := range sub.C {
			s.snapMu.Lock()
			s.snapshots[accountID] = snap
			s.snapMu.Unlock()
			s.summaryCache.Delete(accountID)
		}
		s.snapMu.Lock()
		delete(s.snapshots, accountID)
		s.snapMu.Unlock()
	}()
}

func (s *Server) stopWatching(accountID string) {
	s.snapMu.Lock()
	if cancel, ok := s.watchers[accountID]; ok {
		cancel()
		delete(s.watchers, accountID)
	}
	s.snapMu.Unlock()
}

// refreshSnapshot reads the collection through the facade and replaces the
// cached snapshot. Write handlers call this before rendering: the watcher
// goroutine delivers pushes asynchronously, so without the refresh a render
// right after a write could still show the pre-write collection.
func (s *Server) refreshSnapshot(ctx context.Context, accountID string) error {
	txs, err := s.store.Transactions(ctx, accountID)
	if err != nil {
		return err
	}
	s.snapMu.Lock()
	if _, watching := s.watchers[accountID]; watching {
		s.snapshots[accountID] = store.Snapshot{AccountID: accountID, Transactions: txs}
	}
	s.snapMu.Unlock()
	return nil
}

// transactions returns the freshest known collection for the account,
// preferring the pushed snapshot over a direct read.
func (s *Server) transactions(ctx context.Context, accountID string) ([]core.Transaction, error) {
	s.snapMu.Lock()
	snap, ok := s.snapshots[accountID]
	s.snapMu.Unlock()
	if ok {
		return snap.Transactions, nil
	}
	return s.store.Transactions(ctx, accountID)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.snapMu.Lock()
		for accountID, cancel := range s.watchers {
			cancel()
			delete(s.watchers, accountID)
		}
		s.snapMu.Unlock()

		s.rateLimiter.stop()
		s.cacheManager.Stop()

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
