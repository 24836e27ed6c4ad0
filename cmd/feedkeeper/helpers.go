package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/feedkeeper/internal/automation"
	"github.com/abelbrown/feedkeeper/internal/brain"
	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/coord"
	"github.com/abelbrown/feedkeeper/internal/extract"
	"github.com/abelbrown/feedkeeper/internal/fetch"
	"github.com/abelbrown/feedkeeper/internal/identity"
	"github.com/abelbrown/feedkeeper/internal/logging"
	"github.com/abelbrown/feedkeeper/internal/notify"
	"github.com/abelbrown/feedkeeper/internal/otel"
	"github.com/abelbrown/feedkeeper/internal/rollup"
	"github.com/abelbrown/feedkeeper/internal/store"
)

// fetchTimeout bounds one HTTP snapshot.
const fetchTimeout = 20 * time.Second

// sourceFlags select where snapshots come from. Empty fields fall back to
// the collection config.
type sourceFlags struct {
	file string
	url  string
	feed string
}

// runtime is everything a command needs, wired once.
type runtime struct {
	cfg    *config.Config
	store  *store.Store
	logger *otel.Logger
	ring   *otel.RingBuffer
	bus    *notify.Bus
	auto   *automation.Scheduler
	coord  *coord.Coordinator
	source fetch.Source

	logFile *os.File
}

// dataDir returns the data directory, creating it if needed.
func dataDir() (string, error) {
	dir := config.Dir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// newRuntime opens the store and event log and builds the collection
// pipeline. src may be nil for commands that never take a snapshot.
// ctx bounds the automation scheduler's lifetime.
func newRuntime(ctx context.Context, cfg *config.Config, src fetch.Source, opts coord.Options) (*runtime, error) {
	if _, err := dataDir(); err != nil {
		return nil, err
	}

	logFile, err := os.OpenFile(config.EventsPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	logger := otel.NewLogger(logFile)
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	logger.SetRingBuffer(ring)

	st, err := store.Open(config.DBPath())
	if err != nil {
		logger.Close()
		logFile.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	rules, err := extract.LoadRules(cfg.Extraction.RulesFile)
	if err != nil {
		st.Close()
		logger.Close()
		logFile.Close()
		return nil, err
	}
	x, err := extract.New(rules, extract.Options{
		RepairDuplicateNames: cfg.Extraction.RepairDuplicateNames,
	}, logger.Scope("extract"))
	if err != nil {
		st.Close()
		logger.Close()
		logFile.Close()
		return nil, err
	}

	var commenter automation.Commenter = automation.LogCommenter{Log: logger.Scope("automation")}
	if cfg.Automation.WebhookURL != "" {
		commenter = automation.NewWebhookCommenter(cfg.Automation.WebhookURL)
	}
	auto := automation.NewScheduler(ctx, cfg.AutomationOptions(), commenter, logger.Scope("automation"))

	bus := notify.NewBus(16)
	sess := coord.NewSession(x, &identity.Resolver{Mode: cfg.FallbackIDMode()}, st, bus, auto,
		coord.SessionOptions{Limits: cfg.Limits(), SkipPromoted: cfg.Collection.SkipPromoted},
		logger.Scope("session"))

	gen := &rollup.Generator{
		Summarizer: brain.NewSummarizer(cfg.BrainOptions(), logger.Scope("brain")),
		Disabled:   !cfg.Summary.Enabled,
	}

	if src == nil {
		src = &fetch.FileSource{Path: os.DevNull}
	}
	if opts.Interval <= 0 {
		opts.Interval = cfg.Interval()
	}
	if opts.Prompt == "" {
		opts.Prompt = cfg.Summary.DefaultPrompt
	}
	c := coord.New(sess, src, x, st, bus, gen, auto, opts, logger.Scope("coord"))

	logger.Info(otel.KindStartup, "cli", src.Name())
	logging.Info("runtime ready", "source", src.Name(), "db", config.DBPath(), "model", cfg.Summary.Model)
	return &runtime{
		cfg:     cfg,
		store:   st,
		logger:  logger,
		ring:    ring,
		bus:     bus,
		auto:    auto,
		coord:   c,
		source:  src,
		logFile: logFile,
	}, nil
}

// Close stops collection and the schedules, then flushes the event log.
func (r *runtime) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := r.coord.Close(ctx)
	r.bus.Close()
	r.logger.Info(otel.KindShutdown, "cli", "")
	if d := r.bus.Dropped(); d > 0 {
		logging.Warn("notifications dropped", "count", d)
	}
	logging.Info("runtime closed", "err", err)
	r.logger.Close()
	err = errors.Join(err, r.store.Close(), r.logFile.Close())
	return err
}

// newSource picks the snapshot source. Flags win over config; the first of
// file, url and feed that is set is used.
func newSource(cfg *config.Config, f sourceFlags) (fetch.Source, error) {
	file, url, feed := f.file, f.url, f.feed
	if file == "" && url == "" && feed == "" {
		c := cfg.Collection
		file, url, feed = c.SnapshotFile, c.SnapshotURL, c.FeedURL
	}

	page := cfg.Collection.Page
	if page == "" {
		page = fetch.DefaultPage
	}
	switch {
	case file != "":
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		return &fetch.FileSource{Path: abs, Page: page}, nil
	case url != "":
		return &fetch.HTTPSource{URL: url, Fetcher: fetch.NewFetcher(fetchTimeout)}, nil
	case feed != "":
		return fetch.NewFeedSource(feed, fetch.NewFetcher(fetchTimeout)), nil
	}
	return nil, errors.New("no snapshot source: pass --file, --url or --feed, or set collection.snapshot_file")
}

// watchPath returns the file to watch for changes, if any.
func watchPath(cfg *config.Config, src fetch.Source) string {
	if fs, ok := src.(*fetch.FileSource); ok && cfg.Collection.Watch {
		return fs.Path
	}
	return ""
}

// truncate shortens a string to max runes, appending "..." if truncated.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
