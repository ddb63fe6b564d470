package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/clubhub/events"
	"github.com/techagentng/clubhub/models"
)

type fakeFetcher struct {
	mu          sync.Mutex
	threads     map[models.Thread][]models.Message
	threadErr   error
	block       map[models.Thread]chan struct{}
	started     chan models.Thread
	unread      map[uint]int64
	unreadCalls atomic.Int32
	inFlight    atomic.Int32
	overlapped  atomic.Bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		threads: map[models.Thread][]models.Message{},
		block:   map[models.Thread]chan struct{}{},
		started: make(chan models.Thread, 64),
		unread:  map[uint]int64{},
	}
}

func (f *fakeFetcher) Thread(ctx context.Context, thread models.Thread) ([]models.Message, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	defer f.inFlight.Add(-1)

	select {
	case f.started <- thread:
	default:
	}
	f.mu.Lock()
	wait := f.block[thread]
	f.mu.Unlock()
	if wait != nil {
		// Deliberately ignores ctx: the response arrives after the switch.
		<-wait
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	return append([]models.Message(nil), f.threads[thread]...), nil
}

func (f *fakeFetcher) UnreadPerSender(ctx context.Context) (map[uint]int64, error) {
	f.unreadCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint]int64, len(f.unread))
	for k, v := range f.unread {
		out[k] = v
	}
	return out, nil
}

type shown struct {
	thread   models.Thread
	messages []models.Message
}

type fakeView struct {
	mu     sync.Mutex
	shown  []shown
	unread []map[uint]int64
}

func (v *fakeView) ShowMessages(thread models.Thread, messages []models.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown = append(v.shown, shown{thread, messages})
}

func (v *fakeView) ShowUnread(unread map[uint]int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unread = append(v.unread, unread)
}

func (v *fakeView) snapshot() []shown {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]shown(nil), v.shown...)
}

func (v *fakeView) unreadCalls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.unread)
}

func msg(id, sender uint, content string) models.Message {
	return models.Message{ID: id, SenderID: sender, Content: content}
}

func TestStaleThreadResponseIsDiscarded(t *testing.T) {
	t1, t2 := models.DirectThread(1), models.CategoryThread(2)
	fetcher := newFakeFetcher()
	release := make(chan struct{})
	fetcher.block[t1] = release
	fetcher.threads[t1] = []models.Message{msg(1, 1, "old thread")}
	fetcher.threads[t2] = []models.Message{msg(2, 9, "new thread")}
	view := &fakeView{}

	p := New(fetcher, view, nil, Options{ThreadInterval: time.Hour, UnreadInterval: time.Hour})
	p.Start(context.Background())
	defer p.Stop()

	p.SetActiveThread(t1)
	require.Equal(t, t1, <-fetcher.started)

	p.SetActiveThread(t2)
	require.Eventually(t, func() bool { return len(view.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(50 * time.Millisecond)

	got := view.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, t2, got[0].thread)
	assert.Equal(t, "new thread", got[0].messages[0].Content)
	assert.Equal(t, t2, p.ActiveThread())
}

func TestFailedPollKeepsLastMessages(t *testing.T) {
	thread := models.TeamThread(4)
	fetcher := newFakeFetcher()
	fetcher.threads[thread] = []models.Message{msg(1, 2, "kept")}
	view := &fakeView{}

	p := New(fetcher, view, nil, Options{ThreadInterval: 10 * time.Millisecond, UnreadInterval: time.Hour})
	p.Start(context.Background())
	defer p.Stop()

	p.SetActiveThread(thread)
	require.Eventually(t, func() bool { return len(view.snapshot()) >= 1 }, time.Second, 5*time.Millisecond)

	fetcher.mu.Lock()
	fetcher.threadErr = errors.New("connection refused")
	fetcher.mu.Unlock()
	before := len(view.snapshot())
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, view.snapshot(), before)

	fetcher.mu.Lock()
	fetcher.threadErr = nil
	fetcher.threads[thread] = append(fetcher.threads[thread], msg(2, 2, "recovered"))
	fetcher.mu.Unlock()
	require.Eventually(t, func() bool {
		s := view.snapshot()
		return len(s[len(s)-1].messages) == 2
	}, time.Second, 5*time.Millisecond)
	assert.False(t, fetcher.overlapped.Load())
}

func TestReadEventRefreshesUnreadImmediately(t *testing.T) {
	fetcher := newFakeFetcher()
	view := &fakeView{}
	dispatcher := events.NewDispatcher()

	p := New(fetcher, view, dispatcher, Options{ThreadInterval: time.Hour, UnreadInterval: time.Hour})
	p.Start(context.Background())
	require.Eventually(t, func() bool { return view.unreadCalls() == 1 }, time.Second, 5*time.Millisecond)

	dispatcher.MessagesRead(3)
	require.Eventually(t, func() bool { return view.unreadCalls() == 2 }, time.Second, 5*time.Millisecond)

	p.Stop()
	assert.Equal(t, 0, dispatcher.Subscribers())
}

func TestOpeningUnreadDirectThreadPublishesReadEvent(t *testing.T) {
	counterpart := uint(5)
	thread := models.DirectThread(counterpart)
	fetcher := newFakeFetcher()
	fetcher.threads[thread] = []models.Message{msg(1, counterpart, "ping")}
	view := &fakeView{}
	dispatcher := events.NewDispatcher()

	var mu sync.Mutex
	var got []uint
	dispatcher.Subscribe(func(ev events.ReadEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, *ev.CounterpartID)
	})

	p := New(fetcher, view, dispatcher, Options{ThreadInterval: time.Hour, UnreadInterval: time.Hour})
	p.Start(context.Background())
	defer p.Stop()
	p.SetActiveThread(thread)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []uint{counterpart}, got)
	assert.Eventually(t, func() bool { return fetcher.unreadCalls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestClearActiveThreadStopsPolling(t *testing.T) {
	thread := models.CategoryThread(1)
	fetcher := newFakeFetcher()
	view := &fakeView{}

	p := New(fetcher, view, nil, Options{ThreadInterval: 5 * time.Millisecond, UnreadInterval: time.Hour})
	p.Start(context.Background())
	defer p.Stop()

	p.SetActiveThread(thread)
	require.Eventually(t, func() bool { return len(view.snapshot()) >= 2 }, time.Second, time.Millisecond)
	p.ClearActiveThread()
	time.Sleep(20 * time.Millisecond)
	n := len(view.snapshot())
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, view.snapshot(), n)
	assert.True(t, p.ActiveThread().IsZero())
}

func TestStopDiscardsInFlightResponse(t *testing.T) {
	thread := models.TeamThread(2)
	fetcher := newFakeFetcher()
	release := make(chan struct{})
	fetcher.block[thread] = release
	view := &fakeView{}

	p := New(fetcher, view, nil, Options{ThreadInterval: time.Hour, UnreadInterval: time.Hour})
	p.Start(context.Background())
	p.SetActiveThread(thread)
	<-fetcher.started

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.ctx == nil
	}, time.Second, time.Millisecond)
	close(release)
	<-done
	assert.Empty(t, view.snapshot())
}

func TestRestartAfterStop(t *testing.T) {
	thread := models.CategoryThread(6)
	fetcher := newFakeFetcher()
	fetcher.threads[thread] = []models.Message{msg(1, 2, "hello")}
	view := &fakeView{}
	dispatcher := events.NewDispatcher()

	p := New(fetcher, view, dispatcher, Options{ThreadInterval: time.Hour, UnreadInterval: time.Hour})
	p.SetActiveThread(thread)
	p.Start(context.Background())
	require.Eventually(t, func() bool { return len(view.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	p.Stop()
	assert.Equal(t, 0, dispatcher.Subscribers())

	p.Start(context.Background())
	defer p.Stop()
	require.Eventually(t, func() bool { return len(view.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, thread, view.snapshot()[1].thread)
	assert.Equal(t, 1, dispatcher.Subscribers())
	assert.Eventually(t, func() bool { return view.unreadCalls() == 2 }, time.Second, 5*time.Millisecond)
}
