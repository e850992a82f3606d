// Package daemon runs the deadline daemon: it loads the configuration, starts
// the scheduler with its journal and RPC front end, and keeps configured
// timers in sync with the config file until shut down.
package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/warpdl/deadline/common"
	"github.com/warpdl/deadline/internal/config"
	"github.com/warpdl/deadline/internal/journal"
	"github.com/warpdl/deadline/internal/server"
	"github.com/warpdl/deadline/internal/timers"
	"github.com/warpdl/deadline/pkg/logger"
	"github.com/warpdl/deadline/pkg/scheduler"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// Push notification defaults.
const (
	DefaultPushRate  = 20.0
	DefaultPushBurst = 50
)

const (
	pruneInterval     = time.Hour
	httpShutdownGrace = 5 * time.Second
)

// Config holds the configuration for the daemon runner.
type Config struct {
	// ConfigPath is the YAML config file. Empty means defaults plus
	// environment overrides, without file watching.
	ConfigPath string

	Version   string
	Commit    string
	BuildType string

	// PushRate is the number of timer.fired broadcasts allowed per second.
	PushRate float64
	// PushBurst is the broadcast burst size.
	PushBurst int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external dependencies for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	// ListenerFactory creates network listeners.
	// If nil, net.Listen is used.
	ListenerFactory func(network, address string) (net.Listener, error)

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error

	// Fs reads the config file. If nil, the OS filesystem is used.
	Fs afero.Fs

	// Getenv looks up environment overrides. If nil, os.Getenv is used.
	Getenv func(string) string

	// LogWriter receives the daemon log. If nil, os.Stderr is used.
	LogWriter io.Writer
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config   *Config
	deps     *Dependencies
	running  bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
	stopped  chan struct{}

	// config in effect; replaced on reload
	cfg *config.Config
}

// New creates a new daemon runner with the given configuration and dependencies.
// If config is nil, default values are used.
// If deps is nil, default dependencies are used.
func New(config *Config, deps *Dependencies) *Runner {
	cfg := applyConfigDefaults(config)
	d := applyDependencyDefaults(deps)

	return &Runner{
		config: cfg,
		deps:   d,
	}
}

// applyConfigDefaults returns a Config with default values applied.
func applyConfigDefaults(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	if c.PushRate <= 0 {
		c.PushRate = DefaultPushRate
	}
	if c.PushBurst <= 0 {
		c.PushBurst = DefaultPushBurst
	}
	return c
}

// applyDependencyDefaults returns Dependencies with default values applied.
func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.LogWriter == nil {
		deps.LogWriter = os.Stderr
	}
	return deps
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start brings the daemon up and blocks until the context is canceled,
// Shutdown is called or the RPC server fails.
// Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	watcher := config.NewWatcher(r.deps.Fs, r.config.ConfigPath, r.deps.Getenv, nil)
	cfg, err := r.loadConfig(watcher)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	log, err := r.newLogger(cfg.Log)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	// Create cancellable context
	ctx, r.cancel = context.WithCancel(ctx)

	// Create listener BEFORE setting running=true to avoid race condition
	listener, err := r.deps.ListenerFactory("tcp", cfg.Listen)
	if err != nil {
		r.cancel()
		r.mu.Unlock()
		_ = log.Close()
		return err
	}

	st, err := r.build(ctx, cfg, log)
	if err != nil {
		r.cancel()
		r.mu.Unlock()
		_ = listener.Close()
		_ = log.Close()
		return err
	}

	stopped := make(chan struct{})
	r.listener = listener
	r.cfg = cfg
	r.stopped = stopped
	// Only set running after the stack is up
	r.running = true
	r.mu.Unlock()

	if cfg.RPCSecret == "" {
		log.Warning("rpc_secret is empty: every RPC request will be rejected (set %s)", common.SecretEnv)
	}
	syncTimers(ctx, st, cfg)

	serveErr := make(chan error, 1)
	go func() { serveErr <- st.http.Serve(listener) }()

	if r.config.ConfigPath != "" {
		watcher.SetLogger(log)
		go func() {
			if err := watcher.Watch(ctx, func(c *config.Config) { r.reload(ctx, st, c) }); err != nil {
				log.Warning("config watch stopped: %v", err)
			}
		}()
	}

	log.Info("deadline daemon started")

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-serveErr:
		runErr = err
		r.cancel()
	}

	// Cleanup on exit
	st.close()
	r.cleanupOnStop()
	log.Info("deadline daemon stopped")
	_ = log.Close()
	close(stopped)
	return runErr
}

// newLogger builds the console logger and, when lc.File is set, tees every
// line as JSON into that file.
func (r *Runner) newLogger(lc config.LogConfig) (logger.Logger, error) {
	console := logger.NewZerologLogger(r.deps.LogWriter, logger.ZerologOptions{
		Level:     lc.Level,
		Format:    logger.Format(lc.Format),
		Component: "deadline",
	})
	if lc.File == "" {
		return console, nil
	}
	if dir := filepath.Dir(lc.File); dir != "." {
		if err := r.deps.Fs.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := r.deps.Fs.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	file := logger.NewZerologLogger(f, logger.ZerologOptions{
		Level:     lc.Level,
		Format:    logger.FormatJSON,
		Component: "deadline",
	})
	return logger.NewMultiLogger(console, file), nil
}

func (r *Runner) loadConfig(w *config.Watcher) (*config.Config, error) {
	if r.config.ConfigPath == "" {
		cfg := config.Default()
		cfg.ApplyEnv(r.deps.Getenv)
		return cfg, nil
	}
	return w.Load()
}

// stack is the set of components built from one config.
type stack struct {
	log     logger.Logger
	journal *journal.Journal
	sched   *scheduler.Scheduler
	timers  *timers.Service
	rpc     *server.RPCServer
	http    *server.Server
}

func (r *Runner) build(ctx context.Context, cfg *config.Config, log logger.Logger) (*stack, error) {
	st := &stack{log: log}

	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return nil, err
		}
		st.journal = j
		log.Info("journal at %s", cfg.Journal)
	}

	st.sched = scheduler.New(ctx,
		scheduler.WithLogger(log),
		scheduler.WithIdleWait(cfg.IdleWaitDuration()),
	)

	notifier := server.NewRPCNotifier(log, r.config.PushRate, r.config.PushBurst)
	sinks := []timers.Sink{notifier.Fired}
	if st.journal != nil {
		sinks = append(sinks, journalSink(st.journal, log))
	}
	st.timers = timers.New(st.sched, log, sinks...)

	if retention := cfg.RetentionDuration(); retention > 0 && st.journal != nil {
		r.schedulePrune(ctx, st, retention)
	}

	st.rpc = server.NewRPCServer(&server.RPCConfig{
		Secret:    cfg.RPCSecret,
		Version:   r.config.Version,
		Commit:    r.config.Commit,
		BuildType: r.config.BuildType,
	}, st.timers, st.journal, notifier, log)
	st.http = server.New(st.rpc, log)
	return st, nil
}

// close tears the stack down in dependency order: no new requests, no new
// firings, flush queued firings, then close storage.
func (st *stack) close() {
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownGrace)
	if err := st.http.Shutdown(ctx); err != nil {
		st.log.Warning("RPC server shutdown: %v", err)
	}
	cancel()
	st.rpc.Close()
	st.sched.Close()
	<-st.sched.Done()
	st.timers.Close()
	if err := st.journal.Close(); err != nil {
		st.log.Warning("journal close: %v", err)
	}
}

func journalSink(j *journal.Journal, log logger.Logger) timers.Sink {
	return func(f common.Firing) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := j.Record(ctx, f); err != nil {
			log.Error("journal record for timer %d: %v", f.ID, err)
		}
	}
}

// schedulePrune drops old journal entries now and then every pruneInterval.
// The prune runs off the scheduler goroutine.
func (r *Runner) schedulePrune(ctx context.Context, st *stack, retention time.Duration) {
	prune := func() {
		pctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := st.journal.Prune(pctx, time.Now().Add(-retention))
		if err != nil {
			st.log.Warning("journal prune: %v", err)
			return
		}
		if n > 0 {
			st.log.Info("journal pruned %d firing(s) older than %s", n, retention)
		}
	}
	prune()
	if _, err := st.sched.Repeat(ctx, pruneInterval, func(scheduler.ScheduleID) { go prune() }); err != nil {
		st.log.Warning("journal prune not scheduled: %v", err)
	}
}

func syncTimers(ctx context.Context, st *stack, cfg *config.Config) {
	removed, added, err := st.timers.SyncConfig(ctx, cfg.Timers)
	if err != nil {
		st.log.Error("config timers: %v", err)
	}
	if removed > 0 || added > 0 {
		st.log.Info("config timers synced: %d removed, %d added", removed, added)
	}
}

// reload applies a changed config file. Only the timer list takes effect
// while running; other settings are reported as needing a restart.
func (r *Runner) reload(ctx context.Context, st *stack, cfg *config.Config) {
	r.mu.Lock()
	prev := r.cfg
	r.cfg = cfg
	r.mu.Unlock()

	for _, field := range restartFields(prev, cfg) {
		st.log.Warning("config %s changed; restart the daemon to apply it", field)
	}
	syncTimers(ctx, st, cfg)
}

func restartFields(prev, next *config.Config) []string {
	if prev == nil {
		return nil
	}
	var fields []string
	if prev.Listen != next.Listen {
		fields = append(fields, "listen")
	}
	if prev.RPCSecret != next.RPCSecret {
		fields = append(fields, "rpc_secret")
	}
	if prev.IdleWaitDuration() != next.IdleWaitDuration() {
		fields = append(fields, "idle_wait")
	}
	if prev.Journal != next.Journal || prev.RetentionDuration() != next.RetentionDuration() {
		fields = append(fields, "journal")
	}
	if prev.Log != next.Log {
		fields = append(fields, "log")
	}
	return fields
}

// Addr returns the RPC listen address while running, nil otherwise.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	r.listener = nil
}

// Shutdown gracefully stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if shutdown exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}

	// Execute shutdown function if configured
	if err := r.executeShutdownFunc(); err != nil {
		return err
	}

	return r.performShutdown()
}

// validateRunning checks if the daemon is running.
// Returns ErrNotRunning if not running.
func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	return nil
}

// executeShutdownFunc runs the shutdown function with timeout if configured.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}

	if r.config.ShutdownTimeout > 0 {
		return r.executeWithTimeout(r.deps.ShutdownFunc, r.config.ShutdownTimeout)
	}

	// Shutdown must proceed regardless of cleanup errors.
	_ = r.deps.ShutdownFunc()
	return nil
}

// executeWithTimeout runs a function with a timeout.
// Returns ErrShutdownTimeout if the function exceeds the timeout.
// Returns the function's error if it completes within the timeout.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.forceStop()
		return ErrShutdownTimeout
	}
}

// forceStop cancels the daemon without waiting for cleanup.
func (r *Runner) forceStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	if r.cancel != nil {
		r.cancel()
	}
}

// performShutdown cancels the daemon and waits for Start to finish
// cleaning up, bounded by ShutdownTimeout when set.
func (r *Runner) performShutdown() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	stopped := r.stopped
	r.mu.Unlock()

	if stopped == nil {
		return nil
	}
	if r.config.ShutdownTimeout <= 0 {
		<-stopped
		return nil
	}
	select {
	case <-stopped:
		return nil
	case <-time.After(r.config.ShutdownTimeout):
		return ErrShutdownTimeout
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
