package deadlinecli

import (
	"context"
	"time"

	"github.com/warpdl/deadline/common"
)

func (c *Client) OnceAfter(ctx context.Context, d time.Duration, label string) (uint64, error) {
	res, err := invoke[common.IDResult](ctx, c, common.MethodOnceAfter, &common.OnceAfterParams{
		Delay: d.String(),
		Label: label,
	})
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (c *Client) OnceAt(ctx context.Context, at time.Time, label string) (uint64, error) {
	res, err := invoke[common.IDResult](ctx, c, common.MethodOnceAt, &common.OnceAtParams{
		At:    at.Format(time.RFC3339),
		Label: label,
	})
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (c *Client) Repeat(ctx context.Context, interval time.Duration, label string) (uint64, error) {
	res, err := invoke[common.IDResult](ctx, c, common.MethodRepeat, &common.RepeatParams{
		Interval: interval.String(),
		Label:    label,
	})
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

func (c *Client) Cron(ctx context.Context, expr, label string) (uint64, error) {
	res, err := invoke[common.IDResult](ctx, c, common.MethodCron, &common.CronParams{
		Expr:  expr,
		Label: label,
	})
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

// Remove cancels the timer with the given id.
func (c *Client) Remove(ctx context.Context, id uint64) error {
	_, err := invoke[common.EmptyResult](ctx, c, common.MethodRemove, &common.IDParam{ID: id})
	return err
}

// List returns the timers the daemon knows about.
func (c *Client) List(ctx context.Context) ([]common.TimerInfo, error) {
	res, err := invoke[common.ListResult](ctx, c, common.MethodList, nil)
	if err != nil {
		return nil, err
	}
	return res.Timers, nil
}

// History returns up to limit journal entries, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]common.Firing, error) {
	res, err := invoke[common.JournalListResult](ctx, c, common.MethodJournalList, &common.JournalListParams{Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Firings, nil
}

func (c *Client) GetDaemonVersion(ctx context.Context) (*common.VersionResult, error) {
	return invoke[common.VersionResult](ctx, c, common.MethodGetVersion, nil)
}
