package poller

import (
	"context"
	"sync"
	"time"

	apiError "github.com/techagentng/clubhub/errors"
	"github.com/techagentng/clubhub/events"
	"github.com/techagentng/clubhub/metrics"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

const (
	DefaultThreadInterval = 3 * time.Second
	DefaultUnreadInterval = 30 * time.Second
)

// Fetcher is the store round trip. *client.Client satisfies it.
type Fetcher interface {
	Thread(ctx context.Context, thread models.Thread) ([]models.Message, error)
	UnreadPerSender(ctx context.Context) (map[uint]int64, error)
}

// View receives fresh state. Calls are serialized and made while the poller
// holds its lock, so a View must not call back into the Poller.
type View interface {
	ShowMessages(thread models.Thread, messages []models.Message)
	ShowUnread(unread map[uint]int64)
}

type Options struct {
	ThreadInterval time.Duration
	UnreadInterval time.Duration
	Logger         *zap.Logger
}

// Poller keeps the active thread and the unread map fresh. Each concern runs
// in its own goroutine, so a tick never overlaps a request of the same
// concern, and the two concerns never wait on each other.
type Poller struct {
	fetcher    Fetcher
	view       View
	dispatcher *events.Dispatcher
	opts       Options
	logger     *zap.Logger

	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	active       models.Thread
	generation   uint64
	cancelThread context.CancelFunc
	unsubscribe  func()
	unreadKick   chan struct{}
	wg           sync.WaitGroup
}

func New(fetcher Fetcher, view View, dispatcher *events.Dispatcher, opts Options) *Poller {
	if opts.ThreadInterval <= 0 {
		opts.ThreadInterval = DefaultThreadInterval
	}
	if opts.UnreadInterval <= 0 {
		opts.UnreadInterval = DefaultUnreadInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		fetcher:    fetcher,
		view:       view,
		dispatcher: dispatcher,
		opts:       opts,
		logger:     logger,
		unreadKick: make(chan struct{}, 1),
	}
}

// Start launches the unread loop and subscribes to read events. The poller
// stops when ctx is done or Stop is called; it may be started again after
// Stop. Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	if p.dispatcher != nil {
		p.unsubscribe = p.dispatcher.Subscribe(func(events.ReadEvent) { p.RefreshUnread() })
	}

	p.wg.Add(1)
	go p.unreadLoop(p.ctx)

	if !p.active.IsZero() {
		p.startThreadLocked(p.active)
	}
}

// Stop cancels both loops and waits for them to exit. In-flight responses
// are discarded. The active thread is kept, so a later Start resumes it.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.ctx, p.cancel = nil, nil
	p.generation++
	p.cancelThread = nil
	p.mu.Unlock()

	p.wg.Wait()
}

// SetActiveThread switches the polled thread. The previous thread loop is
// cancelled and any response still in flight for it is dropped.
func (p *Poller) SetActiveThread(thread models.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == thread && p.cancelThread != nil {
		return
	}
	p.active = thread
	p.stopThreadLocked()
	if p.ctx != nil && p.ctx.Err() == nil {
		p.startThreadLocked(thread)
	}
}

func (p *Poller) ClearActiveThread() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = models.Thread{}
	p.stopThreadLocked()
}

func (p *Poller) ActiveThread() models.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// RefreshUnread asks for an immediate unread refresh. Requests made while a
// refresh is in flight collapse into a single follow-up.
func (p *Poller) RefreshUnread() {
	select {
	case p.unreadKick <- struct{}{}:
	default:
	}
}

func (p *Poller) stopThreadLocked() {
	p.generation++
	if p.cancelThread != nil {
		p.cancelThread()
		p.cancelThread = nil
	}
}

func (p *Poller) startThreadLocked(thread models.Thread) {
	ctx, cancel := context.WithCancel(p.ctx)
	p.cancelThread = cancel
	gen := p.generation

	p.wg.Add(1)
	go p.threadLoop(ctx, thread, gen)
}

func (p *Poller) threadLoop(ctx context.Context, thread models.Thread, gen uint64) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.opts.ThreadInterval)
	defer ticker.Stop()

	for {
		p.refreshThread(ctx, thread, gen)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) refreshThread(ctx context.Context, thread models.Thread, gen uint64) {
	messages, err := p.fetcher.Thread(ctx, thread)
	if err != nil {
		if ctx.Err() == nil {
			p.pollFailed("thread", err, zap.Stringer("thread", thread))
		}
		return
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.Debug("discarding stale thread response", zap.Stringer("thread", thread))
		return
	}
	p.view.ShowMessages(thread, messages)
	p.mu.Unlock()

	if thread.Kind == models.ThreadDirect && p.dispatcher != nil && hadUnreadFrom(messages, thread.ID) {
		p.dispatcher.MessagesRead(thread.ID)
	}
}

// hadUnreadFrom reports whether the fetch returned messages from the
// counterpart that were unread until this fetch.
func hadUnreadFrom(messages []models.Message, counterpartID uint) bool {
	for _, m := range messages {
		if m.SenderID == counterpartID && m.ReadAt == nil {
			return true
		}
	}
	return false
}

func (p *Poller) unreadLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.opts.UnreadInterval)
	defer ticker.Stop()

	for {
		p.refreshUnread(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.unreadKick:
		}
	}
}

func (p *Poller) refreshUnread(ctx context.Context) {
	unread, err := p.fetcher.UnreadPerSender(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.pollFailed("unread", err)
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	p.view.ShowUnread(unread)
}

func (p *Poller) pollFailed(concern string, err error, fields ...zap.Field) {
	metrics.PollFailures.WithLabelValues(concern).Inc()
	fields = append(fields,
		zap.String("concern", concern),
		zap.Bool("retryable", apiError.IsRetryable(err)),
		zap.Error(err),
	)
	p.logger.Warn("poll failed, retrying next tick", fields...)
}
