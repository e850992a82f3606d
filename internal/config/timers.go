package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// TimerConfig declares a timer the daemon registers at startup. Exactly one
// of After, At, Every or Cron must be set.
type TimerConfig struct {
	Label string `yaml:"label" json:"label"`
	After string `yaml:"after,omitempty" json:"after,omitempty"`
	At    string `yaml:"at,omitempty" json:"at,omitempty"`
	Every string `yaml:"every,omitempty" json:"every,omitempty"`
	Cron  string `yaml:"cron,omitempty" json:"cron,omitempty"`

	after time.Duration
	at    time.Time
	every time.Duration
}

// TimerKind names which trigger a TimerConfig uses.
type TimerKind string

const (
	TimerAfter TimerKind = "after"
	TimerAt    TimerKind = "at"
	TimerEvery TimerKind = "every"
	TimerCron  TimerKind = "cron"
)

func (t *TimerConfig) normalize(path string) error {
	t.Label = strings.TrimSpace(t.Label)
	if t.Label == "" {
		return fmt.Errorf("%s.label: required", path)
	}

	set := 0
	for _, v := range []string{t.After, t.At, t.Every, t.Cron} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%s (%s): exactly one of after, at, every, cron is required", path, t.Label)
	}

	var err error
	switch t.Kind() {
	case TimerAfter:
		t.after, err = ParseDurationField(path+".after", t.After)
	case TimerAt:
		t.at, err = time.Parse(time.RFC3339, strings.TrimSpace(t.At))
		if err != nil {
			err = fmt.Errorf("%s.at: %w", path, err)
		}
	case TimerEvery:
		t.every, err = ParseDurationField(path+".every", t.Every)
		if err == nil && t.every <= 0 {
			err = fmt.Errorf("%s.every: interval must be > 0", path)
		}
	case TimerCron:
		t.Cron = strings.TrimSpace(t.Cron)
		if !gronx.IsValid(t.Cron) {
			err = fmt.Errorf("%s.cron: invalid expression %q", path, t.Cron)
		}
	}
	return err
}

// Kind reports which trigger field is set.
func (t TimerConfig) Kind() TimerKind {
	switch {
	case strings.TrimSpace(t.After) != "":
		return TimerAfter
	case strings.TrimSpace(t.At) != "":
		return TimerAt
	case strings.TrimSpace(t.Every) != "":
		return TimerEvery
	default:
		return TimerCron
	}
}

// AfterDuration returns the parsed after value.
func (t TimerConfig) AfterDuration() time.Duration { return t.after }

// AtTime returns the parsed at value.
func (t TimerConfig) AtTime() time.Time { return t.at }

// EveryDuration returns the parsed every value.
func (t TimerConfig) EveryDuration() time.Duration { return t.every }

// Spec renders the trigger as "kind value", e.g. "every 5m0s".
func (t TimerConfig) Spec() string {
	switch t.Kind() {
	case TimerAfter:
		return "after " + t.after.String()
	case TimerAt:
		return "at " + t.at.Format(time.RFC3339)
	case TimerEvery:
		return "every " + t.every.String()
	default:
		return "cron " + t.Cron
	}
}

// Key identifies a timer declaration. Two declarations with the same key
// are the same timer across reloads.
func (t TimerConfig) Key() string {
	return t.Label + "\x00" + t.Spec()
}

// DiffTimers compares two timer lists by Key and returns the declarations
// only present in prev (removed) and only present in next (added).
func DiffTimers(prev, next []TimerConfig) (removed, added []TimerConfig) {
	old := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		old[t.Key()] = struct{}{}
	}
	cur := make(map[string]struct{}, len(next))
	for _, t := range next {
		k := t.Key()
		cur[k] = struct{}{}
		if _, ok := old[k]; !ok {
			added = append(added, t)
		}
	}
	for _, t := range prev {
		if _, ok := cur[t.Key()]; !ok {
			removed = append(removed, t)
		}
	}
	return removed, added
}
