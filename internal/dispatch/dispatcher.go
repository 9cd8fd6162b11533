// Package dispatch drains newsletter email jobs through the mail transport at a
// bounded rate, retrying failed sends and keeping the campaign ledger current.
//
// A Dispatcher owns the in-memory queue, the rate counters and the single drain
// loop. Jobs are processed in batches, head to tail; a failed job goes back to
// the tail until it has used up its retries. The queue is not persisted.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"newsletterdispatch/internal/domain"
)

// Options tunes the drain loop.
type Options struct {
	// From is passed to the mailer; empty means the mailer's default sender.
	From string
	// BatchSize is the number of jobs sent concurrently.
	BatchSize int
	// BatchDelay is the pause between batches while the queue is non-empty.
	BatchDelay time.Duration
	// Cooldown is how long a rate-limited drain waits before resuming.
	Cooldown time.Duration
	// MaxRetries is how many times a failed job is requeued before it is dropped.
	MaxRetries int
	// TickInterval is how often the rate limiter checks its windows.
	TickInterval time.Duration
	// SendTimeout bounds a single transport call.
	SendTimeout time.Duration
	// Now is the clock used by the rate limiter; nil means time.Now.
	Now func() time.Time
}

// DefaultOptions returns the production drain settings.
func DefaultOptions() Options {
	return Options{
		BatchSize:    5,
		BatchDelay:   2 * time.Second,
		Cooldown:     60 * time.Second,
		MaxRetries:   3,
		TickInterval: time.Minute,
		SendTimeout:  30 * time.Second,
	}
}

// Dispatcher is the process-wide owner of the dispatch queue. Construct one with
// New and share it by pointer; it is safe for concurrent use.
type Dispatcher struct {
	mailer  domain.Mailer
	ledger  domain.CampaignLedger
	limiter *RateLimiter
	logger  *slog.Logger
	opts    Options

	mu          sync.Mutex
	queue       []*domain.EmailJob
	pending     map[string]int
	processing  bool
	resumeTimer *time.Timer
	resumeAt    time.Time
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dispatcher. Unset sizes and durations fall back to
// DefaultOptions; a zero BatchDelay or MaxRetries is taken as given.
func New(mailer domain.Mailer, ledger domain.CampaignLedger, logger *slog.Logger, opts Options) *Dispatcher {
	def := DefaultOptions()
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = def.BatchDelay
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = def.Cooldown
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = def.TickInterval
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = def.SendTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		mailer:  mailer,
		ledger:  ledger,
		limiter: NewRateLimiter(opts.Now),
		logger:  logger,
		opts:    opts,
		pending: make(map[string]int),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start runs the rate limiter tick until Close.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.opts.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-d.ctx.Done():
				return
			case <-ticker.C:
				d.limiter.Tick()
				if d.limiter.CanSend() {
					d.resumeNow()
				}
			}
		}
	}()
}

// Close stops the tick and any pending resumption, then waits for the current
// batch to finish. Jobs still queued are abandoned; their campaigns stay SENDING
// and are picked up by recovery on the next start.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.resumeTimer != nil {
		d.resumeTimer.Stop()
		d.resumeTimer = nil
	}
	abandoned := len(d.queue)
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
	if abandoned > 0 {
		d.logger.Warn("dispatcher closed with queued jobs", "queued", abandoned)
	}
}

// Enqueue appends jobs to the tail and starts a drain unless one is running or
// waiting out a cooldown.
func (d *Dispatcher) Enqueue(jobs []*domain.EmailJob) error {
	if len(jobs) == 0 {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrDispatcherClosed
	}
	for _, job := range jobs {
		d.queue = append(d.queue, job)
		d.pending[job.CampaignID]++
	}
	start := !d.processing && d.resumeTimer == nil
	if start {
		d.processing = true
		d.wg.Add(1)
	}
	d.mu.Unlock()

	d.logger.Debug("jobs enqueued", "count", len(jobs), "campaign_id", jobs[0].CampaignID)
	if start {
		go d.drain()
	}
	return nil
}

// Pending returns the number of queued or in-flight jobs for a campaign.
func (d *Dispatcher) Pending(campaignID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending[campaignID]
}

// Status returns a snapshot of the queue and rate counters.
func (d *Dispatcher) Status() domain.QueueStatus {
	minute, hour := d.limiter.Counts()
	d.mu.Lock()
	defer d.mu.Unlock()
	st := domain.QueueStatus{
		Queued:         len(d.queue),
		Processing:     d.processing,
		SentThisMinute: minute,
		SentThisHour:   hour,
		MinuteLimit:    PerMinuteLimit,
		HourLimit:      PerHourLimit,
		Campaigns:      make(map[string]int, len(d.pending)),
	}
	for id, n := range d.pending {
		st.Campaigns[id] = n
	}
	if d.resumeTimer != nil {
		at := d.resumeAt
		st.ResumeAt = &at
	}
	return st
}

// resumeNow cuts a cooldown short, used when the limiter window resets early.
func (d *Dispatcher) resumeNow() {
	d.mu.Lock()
	if d.resumeTimer == nil || !d.resumeTimer.Stop() {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	d.resume()
}

func (d *Dispatcher) resume() {
	d.mu.Lock()
	d.resumeTimer = nil
	d.resumeAt = time.Time{}
	if d.closed || d.processing || len(d.queue) == 0 {
		d.mu.Unlock()
		return
	}
	d.processing = true
	d.wg.Add(1)
	d.mu.Unlock()
	go d.drain()
}

// drain is the single drain loop. Only one instance runs at a time, guarded by
// the processing flag.
func (d *Dispatcher) drain() {
	defer d.wg.Done()
	touched := make(map[string]struct{})
	for {
		d.drainPass(touched)
		d.finalize(touched)

		d.mu.Lock()
		if d.closed || len(d.queue) == 0 {
			d.processing = false
			d.mu.Unlock()
			return
		}
		if d.limiter.CanSend() {
			// Jobs arrived while finalizing.
			d.mu.Unlock()
			continue
		}
		d.processing = false
		d.resumeAt = time.Now().Add(d.opts.Cooldown)
		d.resumeTimer = time.AfterFunc(d.opts.Cooldown, d.resume)
		queued := len(d.queue)
		d.mu.Unlock()

		d.logger.Info("send rate limit reached, drain paused",
			"queued", queued, "cooldown", d.opts.Cooldown.String())
		return
	}
}

func (d *Dispatcher) drainPass(touched map[string]struct{}) {
	for {
		batch := d.nextBatch()
		if len(batch) == 0 {
			return
		}
		d.sendBatch(batch, touched)

		d.mu.Lock()
		more := len(d.queue) > 0
		d.mu.Unlock()
		if !more {
			return
		}
		select {
		case <-d.ctx.Done():
			return
		case <-time.After(d.opts.BatchDelay):
		}
	}
}

// nextBatch pops up to BatchSize jobs from the head, never more than the rate
// limiter has room for, and counts them as attempts.
func (d *Dispatcher) nextBatch() []*domain.EmailJob {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	n := min(d.opts.BatchSize, len(d.queue), d.limiter.Remaining())
	if n <= 0 {
		return nil
	}
	batch := make([]*domain.EmailJob, n)
	copy(batch, d.queue[:n])
	clear(d.queue[:n])
	d.queue = d.queue[n:]
	d.limiter.Record(n)
	return batch
}

type campaignDelta struct {
	sent   int
	failed int
}

func (d *Dispatcher) sendBatch(batch []*domain.EmailJob, touched map[string]struct{}) {
	errs := make([]error, len(batch))
	var wg sync.WaitGroup
	for i, job := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = d.send(job)
		}()
	}
	wg.Wait()

	deltas := make(map[string]*campaignDelta)
	var requeue []*domain.EmailJob
	for i, job := range batch {
		touched[job.CampaignID] = struct{}{}
		delta, ok := deltas[job.CampaignID]
		if !ok {
			delta = &campaignDelta{}
			deltas[job.CampaignID] = delta
		}
		err := errs[i]
		switch {
		case err == nil:
			delta.sent++
		case job.RetryCount < d.opts.MaxRetries:
			job.RetryCount++
			requeue = append(requeue, job)
			d.logger.Warn("send failed, requeued",
				"job_id", job.ID, "campaign_id", job.CampaignID, "to", job.To,
				"retry", job.RetryCount, "err", err)
		default:
			delta.failed++
			d.logger.Error("send failed, retries exhausted",
				"job_id", job.ID, "campaign_id", job.CampaignID, "to", job.To, "err", err)
		}
	}

	d.mu.Lock()
	d.queue = append(d.queue, requeue...)
	for id, delta := range deltas {
		if left := d.pending[id] - delta.sent - delta.failed; left > 0 {
			d.pending[id] = left
		} else {
			delete(d.pending, id)
		}
	}
	d.mu.Unlock()

	for id, delta := range deltas {
		if delta.sent == 0 && delta.failed == 0 {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		if err := d.ledger.AddCounts(ctx, id, delta.sent, delta.failed); err != nil {
			d.logger.Error("update campaign counters", "campaign_id", id,
				"sent", delta.sent, "failed", delta.failed, "err", err)
		}
		cancel()
	}
}

func (d *Dispatcher) send(job *domain.EmailJob) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()
	return d.mailer.Send(ctx, &domain.OutboundEmail{
		From:    d.opts.From,
		To:      job.To,
		Subject: job.Subject,
		HTML:    job.HTMLBody,
		Headers: job.Headers(),
	})
}

// finalize settles the status of every touched campaign that has no jobs left.
func (d *Dispatcher) finalize(touched map[string]struct{}) {
	for id := range touched {
		if d.Pending(id) > 0 {
			continue
		}
		delete(touched, id)

		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		c, err := d.ledger.GetByID(ctx, id)
		if err != nil {
			cancel()
			d.logger.Error("load campaign for finalization", "campaign_id", id, "err", err)
			continue
		}
		if c.Status != domain.CampaignSending {
			cancel()
			continue
		}
		status := domain.FinalStatus(c.SentCount)
		if err := d.ledger.UpdateStatus(ctx, id, status); err != nil {
			d.logger.Error("finalize campaign status", "campaign_id", id, "status", status, "err", err)
		} else {
			d.logger.Info("campaign finished", "campaign_id", id, "status", status,
				"sent", c.SentCount, "failed", c.FailedCount, "total", c.RecipientTotal)
		}
		cancel()
	}
}
