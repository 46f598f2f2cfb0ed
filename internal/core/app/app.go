package app

import (
	"driftscan/internal/core/config"
	"driftscan/internal/core/errors"
	"driftscan/internal/data/history"
	"driftscan/internal/engine/graph"
	"driftscan/internal/engine/parser"
	"driftscan/internal/engine/parser/languages"
	"driftscan/internal/engine/resolver"
	"driftscan/internal/engine/walker"
	"driftscan/internal/shared/util"
	"log/slog"
	"path/filepath"
	"sync"
)

// Update summarises the graph after a batch of watched changes.
type Update struct {
	Changed     []string
	Removed     []string
	ModuleCount int
	EdgeCount   int
	Cycles      [][]string
}

type Option func(*App)

// WithRegistry replaces the built-in language plugins.
func WithRegistry(reg *parser.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// WithHistory records completed scans in store.
func WithHistory(store *history.Store) Option {
	return func(a *App) { a.history = store }
}

func WithUpdateHandler(fn func(Update)) Option {
	return func(a *App) { a.onUpdate = fn }
}

// sourceFile is what the app remembers about one parsed file so imports can
// be re-resolved when the file set changes.
type sourceFile struct {
	language   string
	imports    []parser.ImportInfo
	exports    []parser.ExportInfo
	signature  string
	unresolved bool
}

type App struct {
	cfg      *config.Config
	root     string
	registry *parser.Registry
	parsers  *parser.Manager
	graph    *graph.Graph
	history  *history.Store
	limiter  *util.Limiter
	onUpdate func(Update)

	// mu serialises graph and file-set updates.
	mu       sync.Mutex
	files    map[string]*sourceFile
	resolver *resolver.Resolver

	matcherMu sync.Mutex
	matcher   *walker.Matcher
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	root, err := filepath.Abs(cfg.Scan.Root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve scan root"), errors.CtxPath, cfg.Scan.Root)
	}
	root = filepath.Clean(root)

	a := &App{
		cfg:     cfg,
		root:    root,
		graph:   graph.New(),
		limiter: util.NewLimiter(cfg.Watch.RateLimit, cfg.Watch.Burst),
		files:   make(map[string]*sourceFile),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		reg, err := buildRegistry(cfg)
		if err != nil {
			return nil, err
		}
		a.registry = reg
	}

	a.parsers = parser.NewManager(a.registry, parser.ManagerOptions{
		Incremental:          cfg.Parser.IncrementalEnabled(),
		IncrementalThreshold: cfg.Parser.IncrementalThreshold,
		CacheSize:            cfg.Cache.Size,
		CacheTTL:             cfg.Cache.TTL,
		VerifyIncremental:    cfg.Parser.VerifyIncremental,
	})
	a.resolver = resolver.New(root, nil)
	return a, nil
}

func buildRegistry(cfg *config.Config) (*parser.Registry, error) {
	known := languages.Names()
	for name := range cfg.Languages {
		if _, ok := languages.Lookup(name); !ok {
			slog.Warn("ignoring unknown language in config", "language", name)
		}
	}
	enabled := cfg.EnabledLanguages(known)
	if len(enabled) == 0 {
		return nil, errors.New(errors.CodeValidationError, "every language is disabled")
	}
	return languages.NewRegistry(enabled...)
}

func (a *App) Root() string               { return a.root }
func (a *App) Graph() *graph.Graph        { return a.graph }
func (a *App) Parsers() *parser.Manager   { return a.parsers }
func (a *App) Registry() *parser.Registry { return a.registry }
func (a *App) Config() *config.Config     { return a.cfg }
func (a *App) History() *history.Store    { return a.history }

func (a *App) walkOptions() walker.Options {
	s := a.cfg.Scan
	exts := s.Extensions
	if len(exts) == 0 {
		exts = a.registry.Extensions()
	}
	return walker.Options{
		RootDir:            a.root,
		IgnorePatterns:     s.Ignore,
		RespectGitignore:   s.GitignoreEnabled(),
		RespectDriftignore: s.DriftignoreEnabled(),
		FollowSymlinks:     s.FollowSymlinks,
		MaxDepth:           s.MaxDepth,
		Extensions:         exts,
		ComputeHashes:      s.HashesEnabled(),
		Workers:            s.Workers,
		SkipDefaultIgnores: !s.DefaultIgnoresEnabled(),
	}
}

// ignoreMatcher returns the matcher that applies the scan's ignore rules to
// single paths. It is built on first use so the root only has to exist once
// the app starts working.
func (a *App) ignoreMatcher() (*walker.Matcher, error) {
	a.matcherMu.Lock()
	defer a.matcherMu.Unlock()
	if a.matcher == nil {
		m, err := walker.NewMatcher(a.walkOptions())
		if err != nil {
			return nil, err
		}
		a.matcher = m
	}
	return a.matcher, nil
}

// Close releases parser state and the history store.
func (a *App) Close() error {
	a.parsers.Close()
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}
