package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/deadline/common"
	"github.com/warpdl/deadline/internal/journal"
	"github.com/warpdl/deadline/internal/timers"
	"github.com/warpdl/deadline/pkg/chanx"
	"github.com/warpdl/deadline/pkg/logger"
	"github.com/warpdl/deadline/pkg/scheduler"
)

// Custom JSON-RPC error codes for timer operations.
const (
	codeTimerNotFound        = jrpc2.Code(-32001)
	codeSchedulerUnavailable = jrpc2.Code(-32003)
	codeJournalDisabled      = jrpc2.Code(-32004)
	codeInvalidParams        = jrpc2.Code(-32602)
)

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required -- empty means every request is rejected)
	Version   string
	Commit    string
	BuildType string
}

// RPCServer serves the timer methods over an HTTP bridge and over
// WebSocket connections with push notifications.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	secret    string
	version   string
	commit    string
	buildType string
	timers    *timers.Service
	journal   *journal.Journal
	notifier  *RPCNotifier
	log       logger.Logger

	// cancelled by Close to end open WebSocket sessions
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewRPCServer creates an RPCServer. j may be nil when the journal is
// disabled; notifier may be nil when push notifications are not wanted.
func NewRPCServer(cfg *RPCConfig, svc *timers.Service, j *journal.Journal, notifier *RPCNotifier, log logger.Logger) *RPCServer {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if notifier == nil {
		notifier = NewRPCNotifier(log, 0, 0)
	}
	rs := &RPCServer{
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		timers:    svc,
		journal:   j,
		notifier:  notifier,
		log:       log,
	}
	rs.ctx, rs.cancel = context.WithCancel(context.Background())

	rs.methods = handler.Map{
		common.MethodGetVersion:  handler.New(rs.systemGetVersion),
		common.MethodOnceAfter:   handler.New(rs.timerOnceAfter),
		common.MethodOnceAt:      handler.New(rs.timerOnceAt),
		common.MethodRepeat:      handler.New(rs.timerRepeat),
		common.MethodCron:        handler.New(rs.timerCron),
		common.MethodRemove:      handler.New(rs.timerRemove),
		common.MethodList:        handler.New(rs.timerList),
		common.MethodJournalList: handler.New(rs.journalList),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

// Handler returns the authenticated HTTP handler serving both RPC paths.
func (rs *RPCServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(common.RPCPath, requireToken(rs.secret, rs.bridge))
	mux.Handle(common.RPCWSPath, requireToken(rs.secret, http.HandlerFunc(rs.serveWS)))
	return mux
}

// Notifier returns the push notifier used by WebSocket connections.
func (rs *RPCServer) Notifier() *RPCNotifier {
	return rs.notifier
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

func (rs *RPCServer) timerOnceAfter(ctx context.Context, p *common.OnceAfterParams) (*common.IDResult, error) {
	d, err := parseDuration("delay", p.Delay, true)
	if err != nil {
		return nil, err
	}
	info, err := rs.timers.OnceAfter(ctx, d, p.Label, timers.SourceRPC)
	if err != nil {
		return nil, schedulerError(err)
	}
	return &common.IDResult{ID: info.ID}, nil
}

func (rs *RPCServer) timerOnceAt(ctx context.Context, p *common.OnceAtParams) (*common.IDResult, error) {
	if strings.TrimSpace(p.At) == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: at"}
	}
	at, err := time.Parse(time.RFC3339, strings.TrimSpace(p.At))
	if err != nil {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "invalid at: " + err.Error()}
	}
	info, err := rs.timers.OnceAt(ctx, at, p.Label, timers.SourceRPC)
	if err != nil {
		return nil, schedulerError(err)
	}
	return &common.IDResult{ID: info.ID}, nil
}

func (rs *RPCServer) timerRepeat(ctx context.Context, p *common.RepeatParams) (*common.IDResult, error) {
	d, err := parseDuration("interval", p.Interval, false)
	if err != nil {
		return nil, err
	}
	info, err := rs.timers.Repeat(ctx, d, p.Label, timers.SourceRPC)
	if err != nil {
		return nil, schedulerError(err)
	}
	return &common.IDResult{ID: info.ID}, nil
}

func (rs *RPCServer) timerCron(ctx context.Context, p *common.CronParams) (*common.IDResult, error) {
	expr := strings.TrimSpace(p.Expr)
	if expr == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: expr"}
	}
	info, err := rs.timers.Cron(ctx, expr, p.Label, timers.SourceRPC)
	if err != nil {
		if !errors.Is(err, scheduler.ErrChannel) {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
		}
		return nil, schedulerError(err)
	}
	return &common.IDResult{ID: info.ID}, nil
}

func (rs *RPCServer) timerRemove(_ context.Context, p *common.IDParam) (*common.EmptyResult, error) {
	if err := rs.timers.Remove(p.ID); err != nil {
		if errors.Is(err, timers.ErrNotFound) {
			return nil, &jrpc2.Error{Code: codeTimerNotFound, Message: "timer not found"}
		}
		return nil, schedulerError(err)
	}
	return &common.EmptyResult{}, nil
}

func (rs *RPCServer) timerList(_ context.Context) (*common.ListResult, error) {
	return &common.ListResult{Timers: rs.timers.List()}, nil
}

func (rs *RPCServer) journalList(ctx context.Context, p *common.JournalListParams) (*common.JournalListResult, error) {
	if p.Limit < 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "limit must be >= 0"}
	}
	firings, err := rs.journal.List(ctx, p.Limit)
	if errors.Is(err, journal.ErrDisabled) {
		return nil, &jrpc2.Error{Code: codeJournalDisabled, Message: "journal disabled"}
	}
	if err != nil {
		return nil, err
	}
	return &common.JournalListResult{Firings: firings}, nil
}

// parseDuration validates a Go duration param. Zero is accepted only when
// allowZero is set; negative values never are.
func parseDuration(name, raw string, allowZero bool) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: " + name}
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &jrpc2.Error{Code: codeInvalidParams, Message: "invalid " + name + ": " + err.Error()}
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, &jrpc2.Error{Code: codeInvalidParams, Message: name + " must be positive"}
	}
	return d, nil
}

func schedulerError(err error) error {
	if errors.Is(err, scheduler.ErrChannel) || errors.Is(err, chanx.ErrClosed) {
		return &jrpc2.Error{Code: codeSchedulerUnavailable, Message: "scheduler unavailable: " + err.Error()}
	}
	return err
}

// Close shuts down the jrpc2 bridge and disconnects WebSocket clients.
// Safe to call more than once.
func (rs *RPCServer) Close() {
	rs.closeOnce.Do(func() {
		rs.cancel()
		rs.bridge.Close()
	})
}
