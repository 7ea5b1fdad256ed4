package client

import (
	"context"
	"errors"
	"time"

	"splay/domain"
)

const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// PollOptions controls PollScan. Zero fields take the defaults.
type PollOptions struct {
	Interval    time.Duration // first wait, 1s
	MaxInterval time.Duration // cap, 5s
	Factor      float64       // growth per attempt, 1.5
	MaxRetries  int           // consecutive transient failures tolerated, 3; negative disables retries
	OnUpdate    func(*domain.ScanResponse)
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 5 * time.Second
	}
	if o.Factor < 1 {
		o.Factor = 1.5
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	return o
}

// IsTerminal reports whether the scan will not change any more.
func IsTerminal(status string) bool {
	return status == StatusDone || status == StatusFailed
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrNotLoggedIn) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}

// PollScan fetches the scan until it is done or failed, waiting a growing
// interval between attempts. Network errors and 5xx answers are retried up to
// MaxRetries times in a row; any other error ends polling. A failed scan is
// returned without an error.
func (c *Client) PollScan(ctx context.Context, id string, opts PollOptions) (*domain.ScanResponse, error) {
	opts = opts.withDefaults()
	interval := opts.Interval
	failures := 0

	for {
		scan, err := c.GetScan(ctx, id)
		switch {
		case err == nil:
			failures = 0
			if opts.OnUpdate != nil {
				opts.OnUpdate(scan)
			}
			if IsTerminal(scan.Status) {
				return scan, nil
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case !transient(err):
			return nil, err
		default:
			failures++
			if failures > opts.MaxRetries {
				return nil, err
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		interval = time.Duration(float64(interval) * opts.Factor)
		if interval > opts.MaxInterval {
			interval = opts.MaxInterval
		}
	}
}
