package market

import (
	"sort"
	"sync"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

type key struct {
	exchange string
	id       string
}

// registryState holds the thread-safe market cache.
type registryState struct {
	mu sync.RWMutex

	markets map[key]model.Market
	active  map[key]struct{}

	// Last successful sync per venue.
	syncedAt map[string]time.Time

	changes chan MarketChange
}

func newState() *registryState {
	return &registryState{
		markets:  make(map[key]model.Market),
		active:   make(map[key]struct{}),
		syncedAt: make(map[string]time.Time),
		changes:  make(chan MarketChange, ChangeBufferSize),
	}
}

func (s *registryState) get(exchange, id string) (model.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[key{exchange, id}]
	return m, ok
}

func (s *registryState) activeMarkets(exchange string) []model.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Market
	for k := range s.active {
		if k.exchange == exchange {
			out = append(out, s.markets[k])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketID < out[j].MarketID })
	return out
}

// apply replaces one venue's markets with the fetched list and returns the
// listings and delistings it implies. A market missing from the list is
// treated as delisted.
func (s *registryState) apply(exchange string, fetched []model.Market, now time.Time) []MarketChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changes []MarketChange
	seen := make(map[key]struct{}, len(fetched))

	for _, m := range fetched {
		k := key{exchange, m.MarketID}
		seen[k] = struct{}{}
		s.markets[k] = m

		_, wasActive := s.active[k]
		switch {
		case isActive(m) && !wasActive:
			s.active[k] = struct{}{}
			changes = append(changes, MarketChange{Exchange: exchange, MarketID: m.MarketID, EventType: EventListed, Market: m})
		case !isActive(m) && wasActive:
			delete(s.active, k)
			changes = append(changes, MarketChange{Exchange: exchange, MarketID: m.MarketID, EventType: EventDelisted, Market: m})
		}
	}

	for k := range s.active {
		if k.exchange != exchange {
			continue
		}
		if _, ok := seen[k]; !ok {
			delete(s.active, k)
			m := s.markets[k]
			m.IsDelisted = true
			s.markets[k] = m
			changes = append(changes, MarketChange{Exchange: exchange, MarketID: k.id, EventType: EventDelisted, Market: m})
		}
	}

	s.syncedAt[exchange] = now
	sort.Slice(changes, func(i, j int) bool { return changes[i].MarketID < changes[j].MarketID })
	return changes
}

// notifyChange sends a change without blocking, dropping the oldest event
// when the channel is full.
func (s *registryState) notifyChange(change MarketChange) {
	select {
	case s.changes <- change:
	default:
		select {
		case <-s.changes:
		default:
		}
		select {
		case s.changes <- change:
		default:
		}
	}
}

// isActive reports whether a market is tradable. Every venue client folds
// its own status vocabulary into IsDelisted.
func isActive(m model.Market) bool {
	return !m.IsDelisted
}
