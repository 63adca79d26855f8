package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/chefbook/chefbook/internal/adapter/logger"
	"github.com/chefbook/chefbook/internal/domain"
	"github.com/chefbook/chefbook/internal/interfaces"
)

type scopeKind int

const (
	chefScope scopeKind = iota
	userScope
)

type scopeKey struct {
	kind scopeKind
	id   string
}

// scope fans one filtered order view out to its subscribers. The kick
// channel has capacity 1: rapid mutations collapse into a single
// refresh carrying the latest consistent snapshot.
type scope struct {
	kick chan struct{}
	done chan struct{}
	subs map[int]func([]*domain.Order)
	last []*domain.Order
}

func (sc *scope) notify() {
	select {
	case sc.kick <- struct{}{}:
	default:
	}
}

// Hub pushes order-change snapshots to subscribers without polling.
// Each delivered list is the full current view for the scope, sorted by
// created-at descending.
type Hub struct {
	repo   interfaces.OrderRepository
	logger logger.Logger

	mu        sync.Mutex
	scopes    map[scopeKey]*scope
	nextSubID int
}

func NewHub(orders interfaces.OrderRepository, logger logger.Logger) *Hub {
	return &Hub{
		repo:   orders,
		logger: logger,
		scopes: make(map[scopeKey]*scope),
	}
}

func (h *Hub) SubscribeChefOrders(chefID string, onChange func([]*domain.Order)) interfaces.Subscription {
	return h.subscribe(scopeKey{kind: chefScope, id: chefID}, onChange)
}

func (h *Hub) SubscribeUserOrders(userID string, onChange func([]*domain.Order)) interfaces.Subscription {
	return h.subscribe(scopeKey{kind: userScope, id: userID}, onChange)
}

// Notify marks the chef and customer views touched by a mutation as
// stale. Idle scopes are skipped.
func (h *Hub) Notify(chefID, customerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sc, ok := h.scopes[scopeKey{kind: chefScope, id: chefID}]; ok {
		sc.notify()
	}
	if sc, ok := h.scopes[scopeKey{kind: userScope, id: customerID}]; ok {
		sc.notify()
	}
}

func (h *Hub) subscribe(key scopeKey, onChange func([]*domain.Order)) interfaces.Subscription {
	h.mu.Lock()
	sc, ok := h.scopes[key]
	if !ok {
		sc = &scope{
			kick: make(chan struct{}, 1),
			done: make(chan struct{}),
			subs: make(map[int]func([]*domain.Order)),
		}
		h.scopes[key] = sc
		go h.watch(key, sc)
	}

	id := h.nextSubID
	h.nextSubID++
	sc.subs[id] = onChange
	h.mu.Unlock()

	// Initial snapshot for the new subscriber.
	sc.notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(sc.subs, id)
			if len(sc.subs) == 0 {
				// Last subscriber gone: release the watch.
				close(sc.done)
				delete(h.scopes, key)
			}
		})
	}
}

func (h *Hub) watch(key scopeKey, sc *scope) {
	for {
		select {
		case <-sc.done:
			return

		case <-sc.kick:
			snapshot, err := h.query(key)

			h.mu.Lock()
			if err != nil {
				// Fall back to the last known good snapshot until the
				// store recovers.
				h.logger.Error("snapshot_refresh_failed", "Failed to refresh order snapshot", key.id, nil, err)
				snapshot = sc.last
			} else {
				sc.last = snapshot
			}

			callbacks := make([]func([]*domain.Order), 0, len(sc.subs))
			for _, cb := range sc.subs {
				callbacks = append(callbacks, cb)
			}
			h.mu.Unlock()

			if snapshot == nil && err != nil {
				continue
			}

			for _, cb := range callbacks {
				cb(snapshot)
			}
		}
	}
}

func (h *Hub) query(key scopeKey) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if key.kind == chefScope {
		return h.repo.ListByChef(ctx, key.id)
	}
	return h.repo.ListByCustomer(ctx, key.id)
}
