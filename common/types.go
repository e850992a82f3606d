package common

import "time"

type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// OnceAfterParams registers a one-shot timer. Delay uses Go duration syntax.
type OnceAfterParams struct {
	Delay string `json:"delay"`
	Label string `json:"label,omitempty"`
}

// OnceAtParams registers a one-shot timer at an RFC 3339 instant.
type OnceAtParams struct {
	At    string `json:"at"`
	Label string `json:"label,omitempty"`
}

// RepeatParams registers a repeating timer. Interval uses Go duration syntax.
type RepeatParams struct {
	Interval string `json:"interval"`
	Label    string `json:"label,omitempty"`
}

// CronParams registers a cron-driven timer.
type CronParams struct {
	Expr  string `json:"expr"`
	Label string `json:"label,omitempty"`
}

type IDParam struct {
	ID uint64 `json:"id"`
}

type IDResult struct {
	ID uint64 `json:"id"`
}

type EmptyResult struct{}

// TimerInfo describes a timer registered through the daemon.
type TimerInfo struct {
	ID    uint64 `json:"id"`
	Label string `json:"label,omitempty"`
	Kind  string `json:"kind"`
	Spec  string `json:"spec"`
	// Source is "rpc" or "config".
	Source string `json:"source"`
}

type ListResult struct {
	Timers []TimerInfo `json:"timers"`
}

type JournalListParams struct {
	Limit int `json:"limit,omitempty"`
}

// Firing is one journal entry, also used as the timer.fired payload.
type Firing struct {
	ID      uint64    `json:"id"`
	Label   string    `json:"label,omitempty"`
	FiredAt time.Time `json:"firedAt"`
}

type JournalListResult struct {
	Firings []Firing `json:"firings"`
}
