package usecase

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
)

// Session — рабочее место оператора: собственный кэш каталога, корзина и автомат выдачи.
type Session struct {
	ID       string
	Operator domain.Operator
	OpenedAt time.Time

	catalog     *CatalogCache
	finalizer   *IssueFinalizer
	dispatching atomic.Bool
}

// View собирает снимок сессии для внешнего слоя.
func (s *Session) View() *SessionView {
	view := &SessionView{
		ID:         s.ID,
		OperatorID: s.Operator.ID,
		Role:       s.Operator.Role.Name(),
		Dashboard:  s.Operator.Role.Dashboard(),
		OpenedAt:   s.OpenedAt,
	}

	s.finalizer.View(func(cart *CartEngine, issue *domain.Issue, state domain.SessionState) {
		view.State = state
		view.Cart = cart.Snapshot()
		view.Subtotal = cart.Subtotal()
		view.Tax = cart.Tax()
		view.Total = cart.Total()
		view.Issue = issue.Clone()
	})

	return view
}

// SessionRegistry хранит открытые сессии по идентификатору.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

func (r *SessionRegistry) Add(s *Session) {
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
}

func (r *SessionRegistry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, e.ErrSessionNotFound
	}

	return s, nil
}

func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
