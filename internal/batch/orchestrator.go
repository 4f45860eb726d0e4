package batch

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"direct2url/internal/apperr"
	"direct2url/internal/storage"
	"direct2url/pkg/logger"
)

var (
	ErrBatchRunning = errors.New("a batch is already running")
	ErrEmptyBatch   = errors.New("no valid URLs to upload")
	ErrItemNotFound = errors.New("item not found")
	ErrItemBusy     = errors.New("item is uploading")
)

// Observer receives a snapshot after every state change. Calls are
// serialized but may come from the goroutine writing the request body, so
// observers must not block.
type Observer func(Snapshot)

// Orchestrator transfers a batch of source URLs to object storage, one item
// at a time.
type Orchestrator struct {
	issuer    Issuer
	client    *http.Client
	observers []Observer
	log       zerolog.Logger
	newID     func() string

	mu      sync.RWMutex
	items   []Item
	running bool

	notifyMu sync.Mutex
}

type Option func(*Orchestrator)

// WithHTTPClient sets the client used to fetch sources and PUT objects.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func New(issuer Issuer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		issuer: issuer,
		client: http.DefaultClient,
		log:    logger.Log,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch replaces the item list with one pending item per URL and
// processes them in order. Per-item failures are recorded on the item; the
// returned error only reports a precondition.
func (o *Orchestrator) RunBatch(ctx context.Context, v storage.Variant, urls []string) error {
	if err := storage.Validate(v); err != nil {
		return err
	}
	if len(urls) == 0 {
		return ErrEmptyBatch
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBatchRunning
	}
	items := make([]Item, len(urls))
	ids := make([]string, len(urls))
	for i, u := range urls {
		ids[i] = o.newID()
		items[i] = Item{ID: ids[i], URL: u, Status: StatusPending}
	}
	o.items = items
	o.running = true
	o.mu.Unlock()
	o.notify()

	o.log.Info().Int("items", len(ids)).Str("provider", v.Provider().String()).Msg("🚀 Batch started")

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
		o.notify()

		snap := o.Snapshot()
		ok, failed := snap.Counts()
		o.log.Info().Int("succeeded", ok).Int("failed", failed).Msg("✅ Batch finished")
	}()

	for _, id := range ids {
		o.process(ctx, id, v)
	}
	return nil
}

func (o *Orchestrator) process(ctx context.Context, id string, v storage.Variant) {
	it, ok := o.item(id)
	if !ok {
		return
	}
	o.update(id, func(it *Item) {
		it.Status = StatusUploading
		it.Progress = 0
	})

	err := o.transfer(ctx, id, it.URL, v)
	if err != nil {
		msg := errorMessage(err)
		o.update(id, func(it *Item) {
			it.Status = StatusError
			it.Error = msg
		})
		o.log.Warn().Str("item", id).Str("url", it.URL).Str("code", string(apperr.CodeOf(err))).Msg(msg)
		return
	}

	o.update(id, func(it *Item) {
		it.Status = StatusSuccess
		it.Progress = 100
	})
	o.log.Info().Str("item", id).Str("url", it.URL).Msg("upload complete")
}

// errorMessage prefers the message of a coded error over its full chain.
func errorMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Remove drops an item that is not uploading.
func (o *Orchestrator) Remove(id string) error {
	o.mu.Lock()
	idx := o.indexLocked(id)
	if idx < 0 {
		o.mu.Unlock()
		return ErrItemNotFound
	}
	if o.items[idx].Status == StatusUploading {
		o.mu.Unlock()
		return ErrItemBusy
	}
	o.items = append(o.items[:idx:idx], o.items[idx+1:]...)
	o.mu.Unlock()
	o.notify()
	return nil
}

// Clear drops every item when no batch runs.
func (o *Orchestrator) Clear() error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrBatchRunning
	}
	o.items = nil
	o.mu.Unlock()
	o.notify()
	return nil
}

// Items returns a copy of the current items.
func (o *Orchestrator) Items() []Item {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]Item(nil), o.items...)
}

// Progress is the mean progress of all items.
func (o *Orchestrator) Progress() float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return meanProgress(o.items)
}

func (o *Orchestrator) Running() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Snapshot{
		Items:    append([]Item(nil), o.items...),
		Progress: meanProgress(o.items),
		Running:  o.running,
	}
}

func (o *Orchestrator) item(id string) (Item, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if idx := o.indexLocked(id); idx >= 0 {
		return o.items[idx], true
	}
	return Item{}, false
}

// update applies fn to item id and notifies observers. Removed items are
// ignored.
func (o *Orchestrator) update(id string, fn func(*Item)) {
	o.mu.Lock()
	idx := o.indexLocked(id)
	if idx < 0 {
		o.mu.Unlock()
		return
	}
	fn(&o.items[idx])
	o.mu.Unlock()
	o.notify()
}

func (o *Orchestrator) indexLocked(id string) int {
	for i := range o.items {
		if o.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) notify() {
	if len(o.observers) == 0 {
		return
	}
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	snap := o.Snapshot()
	for _, fn := range o.observers {
		fn(snap)
	}
}
