package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/deadline/common"
	"github.com/warpdl/deadline/pkg/logger"
	"golang.org/x/time/rate"
)

const notifyTimeout = 5 * time.Second

// RPCNotifier maintains a set of connected jrpc2 WebSocket servers
// and broadcasts push notifications to all of them. Broadcasts beyond the
// configured rate are dropped and counted.
type RPCNotifier struct {
	mu      sync.RWMutex
	servers map[*jrpc2.Server]struct{}
	log     logger.Logger
	limiter *rate.Limiter

	// dropped since the last delivered broadcast, and in total
	pendingDrops atomic.Uint64
	dropped      atomic.Uint64
}

// NewRPCNotifier creates a notifier allowing perSecond broadcasts with the
// given burst. perSecond <= 0 disables rate limiting.
func NewRPCNotifier(l logger.Logger, perSecond float64, burst int) *RPCNotifier {
	if l == nil {
		l = logger.NewNopLogger()
	}
	n := &RPCNotifier{
		servers: make(map[*jrpc2.Server]struct{}),
		log:     l,
	}
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		n.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return n
}

// Register adds a server to the broadcast set.
func (n *RPCNotifier) Register(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.servers[srv] = struct{}{}
}

// Unregister removes a server from the broadcast set.
func (n *RPCNotifier) Unregister(srv *jrpc2.Server) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.servers, srv)
}

// Broadcast sends a push notification to all registered servers.
// Servers that fail to receive are unregistered.
func (n *RPCNotifier) Broadcast(method string, params any) {
	if n.limiter != nil && !n.limiter.Allow() {
		n.dropped.Add(1)
		if n.pendingDrops.Add(1) == 1 {
			n.log.Warning("push rate exceeded, dropping %s notifications", method)
		}
		return
	}
	if d := n.pendingDrops.Swap(0); d > 0 {
		n.log.Warning("%d push notification(s) dropped by rate limit", d)
	}

	n.mu.RLock()
	servers := make([]*jrpc2.Server, 0, len(n.servers))
	for srv := range n.servers {
		servers = append(servers, srv)
	}
	n.mu.RUnlock()

	var failed []*jrpc2.Server
	for _, srv := range servers {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		err := srv.Notify(ctx, method, params)
		cancel()
		if err != nil {
			n.log.Debug("RPC push failed: %v", err)
			failed = append(failed, srv)
		}
	}

	if len(failed) > 0 {
		n.mu.Lock()
		for _, srv := range failed {
			delete(n.servers, srv)
		}
		n.mu.Unlock()
	}
}

// Fired broadcasts a timer.fired notification. It matches timers.Sink.
func (n *RPCNotifier) Fired(f common.Firing) {
	n.Broadcast(common.NotifyFired, f)
}

// Count returns the number of registered servers.
func (n *RPCNotifier) Count() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.servers)
}

// Dropped returns how many broadcasts the rate limit has discarded.
func (n *RPCNotifier) Dropped() uint64 {
	return n.dropped.Load()
}
