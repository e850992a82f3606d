package timers

import (
	"context"
	"errors"
	"fmt"

	"github.com/warpdl/deadline/common"
	"github.com/warpdl/deadline/internal/config"
	"github.com/warpdl/deadline/pkg/scheduler"
)

type declaredTimer struct {
	decl config.TimerConfig
	id   scheduler.ScheduleID
}

// SyncConfig makes the config-sourced timers match decls. Unchanged
// declarations keep their id and deadline; removed ones are cancelled and new
// ones registered. One-shot declarations that already fired are not
// registered again unless they change.
func (s *Service) SyncConfig(ctx context.Context, decls []config.TimerConfig) (removed, added int, err error) {
	s.mu.Lock()
	prev := make([]config.TimerConfig, 0, len(s.declared))
	for _, d := range s.declared {
		prev = append(prev, d.decl)
	}
	gone, fresh := config.DiffTimers(prev, decls)
	for _, decl := range gone {
		key := decl.Key()
		d := s.declared[key]
		delete(s.declared, key)
		if err := s.removeLocked(d.id); err != nil && !errors.Is(err, ErrNotFound) {
			s.mu.Unlock()
			return removed, added, err
		}
		removed++
	}
	s.mu.Unlock()

	var errs []error
	for _, decl := range fresh {
		info, err := s.registerDecl(ctx, decl)
		if err != nil {
			errs = append(errs, fmt.Errorf("timer %q: %w", decl.Label, err))
			continue
		}
		s.mu.Lock()
		s.declared[decl.Key()] = declaredTimer{decl: decl, id: scheduler.ScheduleID(info.ID)}
		s.mu.Unlock()
		added++
	}
	return removed, added, errors.Join(errs...)
}

func (s *Service) registerDecl(ctx context.Context, decl config.TimerConfig) (common.TimerInfo, error) {
	switch decl.Kind() {
	case config.TimerAfter:
		return s.OnceAfter(ctx, decl.AfterDuration(), decl.Label, SourceConfig)
	case config.TimerAt:
		return s.OnceAt(ctx, decl.AtTime(), decl.Label, SourceConfig)
	case config.TimerEvery:
		return s.Repeat(ctx, decl.EveryDuration(), decl.Label, SourceConfig)
	default:
		return s.Cron(ctx, decl.Cron, decl.Label, SourceConfig)
	}
}
