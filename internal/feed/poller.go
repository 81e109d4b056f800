package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/HendryAvila/coherence/internal/clock"
	"github.com/HendryAvila/coherence/internal/outcome"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Second

// Sink receives usable samples. Epoch identifies the session a poll
// started under; ApplyFeed must discard samples whose epoch is no
// longer current or whose session has ended.
type Sink interface {
	Epoch() uint64
	ApplyFeed(epoch uint64, s Sample) outcome.Outcome
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Interval time.Duration
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Poller fetches from a Client on a fixed interval.
type Poller struct {
	client   *Client
	sink     Sink
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a stopped Poller.
func NewPoller(client *Client, sink Sink, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		client:   client,
		sink:     sink,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   opts.Logger,
	}
}

// Start launches the poll loop. The first poll runs immediately.
// Calling Start on a running Poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	ticker := p.clock.NewTicker(p.interval)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer ticker.Stop()

		p.spawn(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.spawn(ctx)
			}
		}
	}()
	p.logger.Debug("feed poller started", "interval", p.interval)
}

// Stop cancels the loop and waits for in-flight polls. No sample is
// applied after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.logger.Debug("feed poller stopped")
}

// PollOnce fetches one sample and hands it to the sink.
func (p *Poller) PollOnce(ctx context.Context) outcome.Outcome {
	epoch := p.sink.Epoch()
	sample, o := p.client.Fetch(ctx)
	if !o.Applied() {
		return o
	}
	if ctx.Err() != nil {
		return outcome.Failed("apply_feed", outcome.StatusStale, ctx.Err())
	}
	return p.sink.ApplyFeed(epoch, sample)
}

// spawn runs one poll without blocking the ticker; overlapping polls
// are absorbed by the client's in-flight guard.
func (p *Poller) spawn(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		o := p.PollOnce(ctx)
		if o.Status != outcome.StatusOK && o.Status != outcome.StatusSkipped {
			p.logger.Debug("feed poll", "status", o.Status, "error", o.Error())
		}
	}()
}
