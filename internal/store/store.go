package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/service"
)

// Store holds the state of one session. All changes go through Dispatch.
type Store struct {
	id  string
	bus *service.EventBus

	mu       sync.RWMutex
	state    State
	subs     map[chan State]struct{}
	inflight map[string]*inflight
}

type inflight struct {
	cancel context.CancelFunc
}

// New creates a store for session id. bus may be nil.
func New(id string, bus *service.EventBus) *Store {
	return &Store{
		id:       id,
		bus:      bus,
		state:    Initial(),
		subs:     make(map[chan State]struct{}),
		inflight: make(map[string]*inflight),
	}
}

// ID returns the session id.
func (s *Store) ID() string { return s.id }

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch reduces a into the state, notifies subscribers and returns the
// new state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	for ch := range s.subs {
		select {
		case ch <- next:
		default:
			// subscriber too slow, skip
		}
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(service.Event{Resource: service.ResourceDraft, Action: a.Type(), ID: s.id})
	}
	return next
}

// Subscribe returns a channel receiving the state after each dispatch.
func (s *Store) Subscribe() chan State {
	ch := make(chan State, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(ch chan State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; !ok {
		return
	}
	delete(s.subs, ch)
	close(ch)
}

// SelectAoi stores a new area of interest and applies its buffer, so that
// points and lines always come out with an area.
func (s *Store) SelectAoi(info AoiInfo) (State, error) {
	s.Dispatch(UpdateAoiInfo{Info: info})
	return s.SetBuffer(info.Buffer)
}

// SetBuffer rebuffers the original AOI by d meters and records both. d is
// clamped to [0, aoi.MaxBuffer]. Polygons are left alone at 0 while points
// and lines get the minimum buffer. A result computed for an AOI that was
// replaced in the meantime is dropped by the reducer.
func (s *Store) SetBuffer(d float64) (State, error) {
	d = ClampBuffer(d)
	original := s.State().AoiInfo.OriginalGeoJSON
	if original == nil {
		return s.Dispatch(SetBuffer{Buffer: d}), nil
	}

	buffered, err := aoi.BufferGeoJSON(aoi.Clone(original), d, d > 0)
	if err != nil {
		return s.State(), fmt.Errorf("buffering aoi: %w", err)
	}
	return s.Dispatch(SetBuffer{Buffer: d, Original: original, GeoJSON: buffered}), nil
}

// Request describes one asynchronous call made on behalf of the session.
type Request struct {
	// Kind groups requests: a new request cancels any in-flight request of
	// the same kind.
	Kind string
	Do   func(ctx context.Context) (any, error)

	Started   Action
	Succeeded func(result any) Action
	Failed    func(errs []ErrorDetail) Action
}

// Run performs req. Cancelled requests dispatch nothing and return
// ErrCancelled. Failures dispatch req.Failed with the error details, and
// Unauthorized for 401 and 403 responses.
func (s *Store) Run(ctx context.Context, req Request) (any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mine := &inflight{cancel: cancel}
	s.mu.Lock()
	if prev, ok := s.inflight[req.Kind]; ok {
		prev.cancel()
	}
	s.inflight[req.Kind] = mine
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.inflight[req.Kind] == mine {
			delete(s.inflight, req.Kind)
		}
		s.mu.Unlock()
	}()

	if req.Started != nil {
		s.Dispatch(req.Started)
	}

	result, err := req.Do(ctx)
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		log.Debug().Str("session", s.id).Str("kind", req.Kind).Msg("request cancelled")
		return nil, fmt.Errorf("%s: %w", req.Kind, ErrCancelled)
	}

	if err != nil {
		if req.Failed != nil {
			s.Dispatch(req.Failed(Details(err)))
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Unauthorized() {
			s.Dispatch(Unauthorized{Redirect: LoginRedirect})
		}
		return nil, err
	}

	if req.Succeeded != nil {
		s.Dispatch(req.Succeeded(result))
	}
	return result, nil
}

// InFlight reports whether a request of kind is running.
func (s *Store) InFlight(kind string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.inflight[kind]
	return ok
}

// Registry hands out one Store per session.
type Registry struct {
	bus *service.EventBus

	mu     sync.Mutex
	stores map[string]*Store
}

// NewRegistry creates an empty registry publishing on bus.
func NewRegistry(bus *service.EventBus) *Registry {
	return &Registry{bus: bus, stores: make(map[string]*Store)}
}

// Get returns the store for id, creating it on first use.
func (r *Registry) Get(id string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[id]
	if !ok {
		st = New(id, r.bus)
		r.stores[id] = st
		log.Debug().Str("session", id).Msg("session created")
	}
	return st
}

// Lookup returns the store for id if it exists.
func (r *Registry) Lookup(id string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[id]
	return st, ok
}

// Sessions lists the known session ids in order.
func (r *Registry) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Bus returns the event bus stores publish on. It may be nil.
func (r *Registry) Bus() *service.EventBus { return r.bus }
