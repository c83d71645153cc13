package alert

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/jobpulse/errors"
	"github.com/teranos/jobpulse/listing"
	"github.com/teranos/jobpulse/queue"
	"github.com/teranos/jobpulse/sink"
	"github.com/teranos/jobpulse/store"
	"github.com/teranos/jobpulse/store/memory"
)

const testSource = "owner/repo"

type edit struct {
	handle  string
	payload string
	at      time.Time
}

type fakeSink struct {
	mu        sync.Mutex
	next      int
	created   []string
	edits     []edit
	createErr error
	editErr   map[string]error
	block     bool
}

func (f *fakeSink) Create(ctx context.Context, payload sink.Payload) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.next++
	f.created = append(f.created, string(payload))
	return fmt.Sprintf("m%d", f.next), nil
}

func (f *fakeSink) Edit(_ context.Context, handle string, payload sink.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{handle: handle, payload: string(payload), at: time.Now()})
	return f.editErr[handle]
}

type fakeRenderer struct{}

func (fakeRenderer) RenderOpened(source string, l listing.Listing) (sink.Payload, error) {
	return sink.Payload(fmt.Sprintf(`{"open":%q}`, l.ID)), nil
}

func (fakeRenderer) RenderClosed(original sink.Payload) (sink.Payload, error) {
	return sink.Payload(`{"closed":` + string(original) + `}`), nil
}

func openListing(id string) listing.Listing {
	return listing.Listing{
		ID:          id,
		CompanyName: "Acme",
		Title:       "Intern",
		Active:      true,
		Visible:     true,
		Term:        listing.Season("Summer"),
	}
}

func newLifecycle(s *fakeSink, st store.AlertStore, interval time.Duration) *Lifecycle {
	return New(Config{
		Store:    st,
		Sink:     s,
		Renderer: fakeRenderer{},
		Pacer:    queue.NewPacer(interval),
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func TestPublishRecordsHandleAndPayload(t *testing.T) {
	ctx := context.Background()
	s := &fakeSink{}
	st := memory.NewAlertStore()
	lc := newLifecycle(s, st, 0)

	l := openListing("m1")
	require.NoError(t, lc.Publish(ctx, testSource, l))

	history, err := st.History(ctx, listing.SlugFor(testSource, l))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "m1", history[0].Handle)
	assert.JSONEq(t, `{"open":"m1"}`, string(history[0].Payload))
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), history[0].CreatedAt)
}

func TestPublishFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	s := &fakeSink{createErr: errors.Wrap(errors.ErrSinkRejected, "400")}
	st := memory.NewAlertStore()
	lc := newLifecycle(s, st, 0)

	l := openListing("m1")
	err := lc.Publish(ctx, testSource, l)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSinkRejected))

	history, err := st.History(ctx, listing.SlugFor(testSource, l))
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPublishTimeout(t *testing.T) {
	s := &fakeSink{block: true}
	lc := New(Config{
		Store:       memory.NewAlertStore(),
		Sink:        s,
		Renderer:    fakeRenderer{},
		CallTimeout: 20 * time.Millisecond,
	})

	err := lc.Publish(context.Background(), testSource, openListing("m1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTimeout))
}

func TestCloseEmptyHistoryIsNoop(t *testing.T) {
	s := &fakeSink{}
	lc := newLifecycle(s, memory.NewAlertStore(), 0)

	require.NoError(t, lc.Close(context.Background(), testSource, openListing("m1")))
	assert.Empty(t, s.edits)
}

// The listing is published, then closes: one edit against the stored handle
// with the closed rendering, and the history is gone afterwards.
func TestPublishThenClose(t *testing.T) {
	ctx := context.Background()
	s := &fakeSink{}
	st := memory.NewAlertStore()
	lc := newLifecycle(s, st, 0)
	l := openListing("m1")

	require.NoError(t, lc.Publish(ctx, testSource, l))
	require.NoError(t, lc.Close(ctx, testSource, l))

	require.Len(t, s.edits, 1)
	assert.Equal(t, "m1", s.edits[0].handle)
	assert.JSONEq(t, `{"closed":{"open":"m1"}}`, s.edits[0].payload)

	history, err := st.History(ctx, listing.SlugFor(testSource, l))
	require.NoError(t, err)
	assert.Empty(t, history)

	// A second close finds nothing to do.
	require.NoError(t, lc.Close(ctx, testSource, l))
	assert.Len(t, s.edits, 1)
}

func TestCloseEditsEveryRecordWithSpacing(t *testing.T) {
	ctx := context.Background()
	s := &fakeSink{}
	st := memory.NewAlertStore()
	interval := 40 * time.Millisecond
	lc := newLifecycle(s, st, interval)
	l := openListing("m1")
	slug := listing.SlugFor(testSource, l)

	for _, h := range []string{"a", "b", "c"} {
		require.NoError(t, st.Append(ctx, slug, store.AlertRecord{Handle: h, Payload: []byte(`{}`)}))
	}

	require.NoError(t, lc.Close(ctx, testSource, l))

	require.Len(t, s.edits, 3)
	assert.Equal(t, "a", s.edits[0].handle)
	assert.Equal(t, "b", s.edits[1].handle)
	assert.Equal(t, "c", s.edits[2].handle)
	for i := 1; i < len(s.edits); i++ {
		assert.GreaterOrEqual(t, s.edits[i].at.Sub(s.edits[i-1].at), interval)
	}
}

func TestCloseContinuesPastFailedEdit(t *testing.T) {
	ctx := context.Background()
	s := &fakeSink{editErr: map[string]error{"a": errors.Wrap(errors.ErrSinkRejected, "404")}}
	st := memory.NewAlertStore()
	core, logs := observer.New(zapcore.DebugLevel)
	lc := New(Config{
		Store:    st,
		Sink:     s,
		Renderer: fakeRenderer{},
		Pacer:    queue.NewPacer(0),
		Logger:   zap.New(core).Sugar(),
	})
	l := openListing("m1")
	slug := listing.SlugFor(testSource, l)

	require.NoError(t, st.Append(ctx, slug, store.AlertRecord{Handle: "a", Payload: []byte(`{}`)}))
	require.NoError(t, st.Append(ctx, slug, store.AlertRecord{Handle: "b", Payload: []byte(`{}`)}))

	err := lc.Close(ctx, testSource, l)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 edits failed")

	assert.Len(t, s.edits, 2)
	assert.Equal(t, 1, logs.FilterMessage("Failed to close notification").Len())

	history, err := st.History(ctx, slug)
	require.NoError(t, err)
	assert.Empty(t, history, "history is cleared after all edits were attempted")
}

func TestTasksRunThroughQueue(t *testing.T) {
	ctx := context.Background()
	s := &fakeSink{}
	st := memory.NewAlertStore()
	q := queue.New(0, nil)
	lc := New(Config{Store: st, Sink: s, Renderer: fakeRenderer{}, Pacer: q.Pacer()})
	l := openListing("m1")

	publish := lc.PublishTask(testSource, l)
	assert.Equal(t, TaskPublish, publish.Name)
	assert.Equal(t, string(listing.SlugFor(testSource, l)), publish.Key)

	q.Enqueue(publish)
	q.Enqueue(lc.CloseTask(testSource, l))
	require.NoError(t, q.Run(ctx))

	assert.Len(t, s.created, 1)
	assert.Len(t, s.edits, 1)
	assert.Equal(t, queue.Stats{Enqueued: 2, Succeeded: 2}, q.Stats())
}
