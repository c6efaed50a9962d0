package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"reviews_dashboard/internal/wbapi"
)

// PageSizes is the fixed set of selectable page sizes.
var PageSizes = []int{5, 10, 20, 50}

// DefaultPageSize is used until the user picks another size.
const DefaultPageSize = 10

// ErrFetchInFlight is returned when a refresh is requested while another
// refresh is still running.
var ErrFetchInFlight = errors.New("engine: fetch already in flight")

// ErrBadPageSize is returned for a page size outside PageSizes.
var ErrBadPageSize = errors.New("engine: unsupported page size")

// Fetcher is the slice of the feedbacks client the engine needs.
type Fetcher interface {
	FetchPage(ctx context.Context, answered bool, take, skip int) ([]wbapi.Feedback, error)
}

// Engine owns the in-memory collection of fetched feedbacks for one session
// and tab, tracks provider-side fetch progress, and derives the filtered,
// paginated view.
//
// The browser original was single-threaded; here every HTTP request may hit
// the same session concurrently, so all state is guarded by a mutex. Network
// fetches run outside the lock; results carry the epoch current at fetch
// start, and results from a stale epoch (the tab was switched or refreshed
// meanwhile) are discarded instead of being appended to the wrong collection.
type Engine struct {
	fetcher Fetcher
	take    int
	log     *zap.SugaredLogger

	mu          sync.Mutex
	answered    bool // active tab
	loaded      []wbapi.Feedback
	ids         map[string]struct{}
	loadedCount int // raw items fetched upstream; not reduced by RemoveItem
	hasMore     bool
	criteria    Criteria
	page        int
	pageSize    int
	refreshing  bool
	loadingMore bool
	epoch       uint64
}

// New constructs an Engine fetching pages of the given size.
func New(fetcher Fetcher, take int, log *zap.SugaredLogger) *Engine {
	if take <= 0 || take > wbapi.MaxTake {
		take = 100
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		fetcher:  fetcher,
		take:     take,
		log:      log,
		ids:      map[string]struct{}{},
		criteria: DefaultCriteria(),
		page:     1,
		pageSize: DefaultPageSize,
	}
}

// Reset replaces the collection wholesale for the given tab: clears state,
// fetches the first page, and latches hasMore from the page length (a short
// page is the only exhaustion signal; no total-count field is trusted).
func (e *Engine) Reset(ctx context.Context, answered bool) error {
	e.mu.Lock()
	if e.refreshing {
		e.mu.Unlock()
		return ErrFetchInFlight
	}
	e.refreshing = true
	e.epoch++
	epoch := e.epoch
	e.answered = answered
	e.loaded = nil
	e.ids = map[string]struct{}{}
	e.loadedCount = 0
	e.hasMore = true
	e.page = 1
	take := e.take
	e.mu.Unlock()

	items, err := e.fetcher.FetchPage(ctx, answered, take, 0)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.refreshing = false
	if err != nil {
		e.hasMore = false
		return err
	}
	if epoch != e.epoch {
		e.log.Debugw("discarding stale refresh result", "epoch", epoch)
		return nil
	}
	e.append(items)
	e.loadedCount = len(items)
	e.hasMore = len(items) == take
	e.page = 1
	return nil
}

// LoadMore fetches the next upstream page for the active tab and appends it.
// It is a no-op when the collection is exhausted or another fetch (refresh or
// load-more) is still in flight. loadedCount tracks provider-side progress,
// so locally removed items do not shift the next offset.
func (e *Engine) LoadMore(ctx context.Context) error {
	e.mu.Lock()
	if !e.hasMore || e.refreshing || e.loadingMore {
		e.mu.Unlock()
		return nil
	}
	e.loadingMore = true
	epoch := e.epoch
	answered := e.answered
	take := e.take
	skip := e.loadedCount
	e.mu.Unlock()

	items, err := e.fetcher.FetchPage(ctx, answered, take, skip)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadingMore = false
	if err != nil {
		return err
	}
	if epoch != e.epoch {
		e.log.Debugw("discarding stale load-more result", "epoch", epoch, "skip", skip)
		return nil
	}
	e.append(items)
	e.loadedCount += len(items)
	e.hasMore = len(items) == take
	e.page = 1
	return nil
}

// append adds items to the collection, dropping ids already loaded. The
// provider should not return duplicates across dateDesc pages, but new
// feedback arriving between calls can shift the offsets.
func (e *Engine) append(items []wbapi.Feedback) {
	for _, fb := range items {
		if _, dup := e.ids[fb.ID]; dup {
			continue
		}
		e.ids[fb.ID] = struct{}{}
		e.loaded = append(e.loaded, fb)
	}
}

// SetCriteria replaces the filter and resets pagination to the first page.
func (e *Engine) SetCriteria(c Criteria) error {
	if !c.Media.Valid() {
		return errors.New("engine: unknown media filter")
	}
	for r := range c.Ratings {
		if r < 1 || r > 5 {
			return errors.New("engine: rating out of range 1..5")
		}
	}
	if c.Ratings == nil {
		c.Ratings = map[int]bool{}
	}
	if c.Tags == nil {
		c.Tags = map[string]bool{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.criteria = c
	e.page = 1
	return nil
}

// SetPage moves to the given 1-based page, clamped into the valid range.
func (e *Engine) SetPage(page int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if page < 1 {
		page = 1
	}
	_, _, totalPages := deriveView(e.loaded, e.criteria, page, e.pageSize)
	if page > totalPages {
		page = totalPages
	}
	e.page = page
}

// SetPageSize switches to one of the fixed page sizes and clamps back to
// page 1.
func (e *Engine) SetPageSize(size int) error {
	ok := false
	for _, s := range PageSizes {
		if s == size {
			ok = true
			break
		}
	}
	if !ok {
		return ErrBadPageSize
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pageSize = size
	e.page = 1
	return nil
}

// RemoveItem drops the feedback with the given id from the collection.
// Fetch bookkeeping (loadedCount, hasMore) is untouched: it tracks upstream
// progress, not local removals.
func (e *Engine) RemoveItem(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ids[id]; !ok {
		return
	}
	delete(e.ids, id)
	for i, fb := range e.loaded {
		if fb.ID == id {
			e.loaded = append(e.loaded[:i], e.loaded[i+1:]...)
			break
		}
	}
	e.page = 1
}

// Item returns the loaded feedback with the given id.
func (e *Engine) Item(id string) (wbapi.Feedback, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ids[id]; !ok {
		return wbapi.Feedback{}, false
	}
	for _, fb := range e.loaded {
		if fb.ID == id {
			return fb, true
		}
	}
	return wbapi.Feedback{}, false
}

// View is the derived, render-ready slice of engine state.
type View struct {
	Answered     bool             `json:"answered"`
	Items        []wbapi.Feedback `json:"items"`
	VisibleCount int              `json:"visibleCount"`
	LoadedCount  int              `json:"loadedCount"`
	TotalPages   int              `json:"totalPages"`
	Page         int              `json:"page"`
	PageSize     int              `json:"pageSize"`
	HasMore      bool             `json:"hasMore"`
	Fetching     bool             `json:"fetching"`
	Criteria     Criteria         `json:"criteria"`
}

// View derives the current visible subset and page slice. It never mutates
// engine state.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	visible, pageItems, totalPages := deriveView(e.loaded, e.criteria, e.page, e.pageSize)
	items := make([]wbapi.Feedback, len(pageItems))
	copy(items, pageItems)
	return View{
		Answered:     e.answered,
		Items:        items,
		VisibleCount: len(visible),
		LoadedCount:  e.loadedCount,
		TotalPages:   totalPages,
		Page:         e.page,
		PageSize:     e.pageSize,
		HasMore:      e.hasMore,
		Fetching:     e.refreshing || e.loadingMore,
		Criteria:     e.criteria,
	}
}

// deriveView is the pure derivation (visible, pageItems, totalPages) from
// the collection, criteria and pagination state. Order from loaded is
// preserved; totalPages is at least 1; the page slice clamps to the tail.
func deriveView(loaded []wbapi.Feedback, c Criteria, page, pageSize int) (visible, pageItems []wbapi.Feedback, totalPages int) {
	for _, fb := range loaded {
		if c.Matches(fb) {
			visible = append(visible, fb)
		}
	}

	totalPages = (len(visible) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	lo := (page - 1) * pageSize
	hi := lo + pageSize
	if lo > len(visible) {
		lo = len(visible)
	}
	if hi > len(visible) {
		hi = len(visible)
	}
	pageItems = visible[lo:hi]
	return visible, pageItems, totalPages
}
