package common

// JSON-RPC method names served by the daemon.
const (
	MethodGetVersion  = "system.getVersion"
	MethodOnceAfter   = "timer.onceAfter"
	MethodOnceAt      = "timer.onceAt"
	MethodRepeat      = "timer.repeat"
	MethodCron        = "timer.cron"
	MethodRemove      = "timer.remove"
	MethodList        = "timer.list"
	MethodJournalList = "journal.list"
)

// NotifyFired is pushed to WebSocket clients whenever a timer fires.
const NotifyFired = "timer.fired"

// HTTP paths of the RPC endpoints.
const (
	RPCPath   = "/jsonrpc"
	RPCWSPath = "/jsonrpc/ws"
)
