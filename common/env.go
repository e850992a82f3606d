// Package common provides the types and constants shared by the deadline
// daemon and its CLI client.
package common

// Environment variable names for configuration.
const (
	// ConfigPathEnv points at the daemon's YAML config file.
	ConfigPathEnv = "DEADLINE_CONFIG"

	// ListenEnv overrides the daemon's RPC listen address (host:port).
	ListenEnv = "DEADLINE_LISTEN"

	// SecretEnv is the bearer token required by the RPC endpoints.
	SecretEnv = "DEADLINE_RPC_SECRET"

	// DebugEnv enables debug logging when set to a non-empty value.
	DebugEnv = "DEADLINE_DEBUG"
)

// DefaultListen is the RPC address used when neither the config file nor
// ListenEnv sets one.
const DefaultListen = "127.0.0.1:7447"
