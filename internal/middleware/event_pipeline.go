package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/internal/service/metrics"
	"TradeDash/internal/service/ratelimit"
	"TradeDash/pkg/logger"
)

// Drop reasons reported on the pipeline dropped counter.
const (
	DropBufferFull = "buffer_full"
	DropThrottled  = "throttled"
	DropInvalid    = "invalid"
	DropExhausted  = "retries_exhausted"
	DropStopped    = "stopped"
)

// EventPipeline sits between the analysis use case and an EventPublisher.
// It throttles per symbol, buffers, and retries publish failures with capped
// exponential backoff.
type EventPipeline struct {
	pub     domrepo.EventPublisher
	metrics domrepo.Metrics
	log     *logger.Logger
	limiter *ratelimit.Limiter

	maxRPS     int
	bufSize    int
	retryMax   int
	backoffMin time.Duration
	backoffMax time.Duration

	bufCh   chan models.SignalEvent
	stopCh  chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	started bool
	stopped bool

	sleep   func(ctx context.Context, d time.Duration) error
	dropped func(reason string)
	depth   func(n int)
}

type PipelineOption func(*EventPipeline)

// WithMaxRPS caps accepted events per symbol per second. Zero disables throttling.
func WithMaxRPS(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n >= 0 {
			p.maxRPS = n
		}
	}
}

func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetry sets the retry budget and the backoff bounds.
func WithRetry(retries int, minDelay, maxDelay time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if retries >= 0 {
			p.retryMax = retries
		}
		if minDelay > 0 {
			p.backoffMin = minDelay
		}
		if maxDelay >= p.backoffMin {
			p.backoffMax = maxDelay
		}
	}
}

func WithPipelineLogger(l *logger.Logger) PipelineOption {
	return func(p *EventPipeline) { p.log = l.Named("event_pipeline") }
}

func NewEventPipeline(pub domrepo.EventPublisher, m domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	if m == nil {
		m = domrepo.NopMetrics{}
	}
	p := &EventPipeline{
		pub:        pub,
		metrics:    m,
		log:        logger.Nop(),
		limiter:    ratelimit.New(),
		maxRPS:     1,
		bufSize:    256,
		retryMax:   5,
		backoffMin: 200 * time.Millisecond,
		backoffMax: 10 * time.Second,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
		sleep:      sleepCtx,
		dropped:    func(reason string) { metrics.PipelineDropped.WithLabelValues(reason).Inc() },
		depth:      func(n int) { metrics.PipelineBufferDepth.Set(float64(n)) },
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.SignalEvent, p.bufSize)
	return p
}

// Enqueue accepts an event without blocking. It returns false when the event
// was rejected, throttled, or the buffer is full.
func (p *EventPipeline) Enqueue(e models.SignalEvent) bool {
	if err := validateEvent(e); err != nil {
		p.drop(DropInvalid, e, err)
		return false
	}
	if !p.allow(e.Symbol) {
		p.drop(DropThrottled, e, nil)
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		p.drop(DropStopped, e, nil)
		return false
	}
	select {
	case p.bufCh <- e:
		p.depth(len(p.bufCh))
		return true
	default:
		p.drop(DropBufferFull, e, nil)
		return false
	}
}

// Start launches the dispatch loop.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.loop(ctx)
	p.log.Info("event pipeline started",
		logger.String("publisher", p.pub.Name()),
		logger.Int("buffer", p.bufSize),
	)
}

// Stop refuses new events, makes one attempt at what is buffered, and waits
// for the loop to exit or ctx to expire.
func (p *EventPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	p.mu.Unlock()

	close(p.stopCh)
	if !started {
		return nil
	}
	select {
	case <-p.done:
		p.log.Info("event pipeline stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports the buffered event count.
func (p *EventPipeline) Pending() int { return len(p.bufCh) }

func (p *EventPipeline) loop(ctx context.Context) {
	defer close(p.done)
	for {
		select {
		case <-p.stopCh:
			p.drain(ctx)
			return
		case <-ctx.Done():
			return
		case e := <-p.bufCh:
			p.depth(len(p.bufCh))
			p.dispatch(ctx, e)
		}
	}
}

func (p *EventPipeline) drain(ctx context.Context) {
	for {
		select {
		case e := <-p.bufCh:
			p.depth(len(p.bufCh))
			if err := p.publish(ctx, e); err != nil {
				p.drop(DropStopped, e, err)
			}
		default:
			return
		}
	}
}

func (p *EventPipeline) dispatch(ctx context.Context, e models.SignalEvent) {
	backoff := p.backoffMin
	var err error
	for attempt := 0; attempt <= p.retryMax; attempt++ {
		if err = p.publish(ctx, e); err == nil {
			return
		}
		p.metrics.RecordError("pipeline_publish")
		if attempt == p.retryMax {
			break
		}
		p.log.Warn("publish failed, retrying",
			logger.Symbol(e.Symbol),
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", backoff),
			logger.Error(err),
		)
		if serr := p.wait(ctx, backoff); serr != nil {
			err = serr
			break
		}
		if backoff *= 2; backoff > p.backoffMax {
			backoff = p.backoffMax
		}
	}
	p.drop(DropExhausted, e, err)
}

func (p *EventPipeline) publish(ctx context.Context, e models.SignalEvent) error {
	start := time.Now()
	if err := p.pub.Publish(ctx, e); err != nil {
		return fmt.Errorf("publish %s %s: %w", e.Symbol, e.Signal, err)
	}
	p.metrics.RecordMessageSent(p.pub.Name(), e.Symbol)
	p.metrics.RecordLatency("pipeline_publish", time.Since(start).Seconds())
	return nil
}

// wait sleeps for d unless the pipeline stops or ctx ends first.
func (p *EventPipeline) wait(ctx context.Context, d time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return p.sleep(ctx, d)
}

func (p *EventPipeline) allow(symbol string) bool {
	if p.maxRPS <= 0 {
		return true
	}
	return p.limiter.Allow(symbol, float64(p.maxRPS), float64(p.maxRPS))
}

func (p *EventPipeline) drop(reason string, e models.SignalEvent, err error) {
	p.dropped(reason)
	fields := []logger.Field{logger.Symbol(e.Symbol), logger.String("signal", e.Signal), logger.String("reason", reason)}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	p.log.Warn("signal event dropped", fields...)
}

func validateEvent(e models.SignalEvent) error {
	if e.Symbol == "" {
		return errors.New("symbol empty")
	}
	if e.Signal != models.SignalStrongBuy && e.Signal != models.SignalStrongSell {
		return fmt.Errorf("unknown signal %q", e.Signal)
	}
	if e.Date.IsZero() {
		return errors.New("date missing")
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
