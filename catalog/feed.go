package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/models"
)

// Translator resolves a message key in the caller's language
type Translator interface {
	T(key string) string
}

// State is what a list view renders
type State[T any] struct {
	Items   []T    `json:"items"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// FetchFunc loads the collection for one filter value
type FetchFunc[F Filter, T any] func(ctx context.Context, f F) ([]T, error)

// Feed keeps the last fetched collection of one view and re-fetches it in
// full only when the filter's Key changes. Fetch failures become a localized
// message in State.Error; Update never returns an error. A failed fetch is not
// cached, so the next Update with the same filters tries again.
type Feed[F Filter, T any] struct {
	fetch  FetchFunc[F, T]
	errKey string
	tr     Translator

	mu      sync.Mutex
	key     string
	fetched bool
	pending chan struct{} // closed when the running fetch settles
	state   State[T]
}

// NewFeed wires a fetch function to a translator
func NewFeed[F Filter, T any](fetch FetchFunc[F, T], errKey string, tr Translator) *Feed[F, T] {
	return &Feed[F, T]{fetch: fetch, errKey: errKey, tr: tr}
}

// NewVehicleFeed is the inventory feed
func NewVehicleFeed(v Vehicles, tr Translator) *Feed[VehicleFilters, models.Vehicle] {
	return NewFeed[VehicleFilters, models.Vehicle](v.Fetch, VehiclesLoadError, tr)
}

// NewPartFeed is the spare parts feed
func NewPartFeed(p Parts, tr Translator) *Feed[PartFilters, models.SparePart] {
	return NewFeed[PartFilters, models.SparePart](p.Fetch, PartsLoadError, tr)
}

// Update makes sure the feed reflects filters and returns the resulting state.
// Callers asking for the key that is already being fetched wait for that
// fetch instead of starting another one.
func (f *Feed[F, T]) Update(ctx context.Context, filters F) State[T] {
	key := filters.Key()

	f.mu.Lock()
	for f.fetched && key == f.key {
		wait := f.pending
		if wait == nil {
			s := f.state
			f.mu.Unlock()
			return s
		}
		f.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return f.State()
		}
		f.mu.Lock()
	}
	done := make(chan struct{})
	f.key = key
	f.fetched = true
	f.pending = done
	f.state.Loading = true
	f.state.Error = ""
	f.mu.Unlock()

	items, err := f.fetch(ctx, filters)

	f.mu.Lock()
	defer f.mu.Unlock()
	defer close(done)
	if f.pending != done {
		// a newer fetch took over; answer this caller with its own result
		if err != nil {
			return State[T]{Error: f.tr.T(f.errKey)}
		}
		return State[T]{Items: items}
	}
	f.pending = nil
	f.state.Loading = false
	if err != nil {
		zap.S().Errorw("feed fetch failed", "filters", key, "error", err)
		f.fetched = false
		f.state.Items = nil
		f.state.Error = f.tr.T(f.errKey)
		return f.state
	}
	f.state.Items = items
	return f.state
}

// State returns the current state without fetching
func (f *Feed[F, T]) State() State[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Invalidate forces the next Update to re-fetch even if the key is unchanged
func (f *Feed[F, T]) Invalidate() {
	f.mu.Lock()
	f.fetched = false
	f.mu.Unlock()
}
