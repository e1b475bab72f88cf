package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

// Store keeps sites and users in process memory. Sites are listed in
// insertion order.
type Store struct {
	mu         sync.RWMutex
	order      []domain.SiteID
	sites      map[domain.SiteID]*domain.MonitoredSite
	users      map[domain.UserID]domain.User
	failUpdate map[domain.SiteID]error
}

func New() *Store {
	return &Store{
		sites:      make(map[domain.SiteID]*domain.MonitoredSite),
		users:      make(map[domain.UserID]domain.User),
		failUpdate: make(map[domain.SiteID]error),
	}
}

func (m *Store) AddSite(ctx context.Context, s *domain.MonitoredSite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = domain.SiteID(uuid.NewString())
	}
	if _, ok := m.sites[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	cp := *s
	m.sites[s.ID] = &cp
	return nil
}

func (m *Store) AddUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == "" {
		u.ID = domain.UserID(uuid.NewString())
	}
	m.users[u.ID] = u
	return nil
}

// FailUpdate makes every later UpdateSiteStatus for id return err.
// A nil err clears it.
func (m *Store) FailUpdate(id domain.SiteID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failUpdate, id)
		return
	}
	m.failUpdate[id] = err
}

func (m *Store) ListSites(ctx context.Context, f repo.SiteFilter) ([]domain.MonitoredSite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.MonitoredSite, 0, len(m.order))
	for _, id := range m.order {
		s := m.sites[id]
		if f.UserID != "" && s.UserID != f.UserID {
			continue
		}
		out = append(out, copySite(s))
	}
	return out, nil
}

func (m *Store) GetSite(ctx context.Context, id domain.SiteID) (*domain.MonitoredSite, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sites[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := copySite(s)
	return &cp, nil
}

func (m *Store) UpdateSiteStatus(ctx context.Context, id domain.SiteID, u repo.StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failUpdate[id]; err != nil {
		return err
	}
	s, ok := m.sites[id]
	if !ok {
		return repo.ErrNotFound
	}
	checked := u.CheckedAt
	ms := u.ResponseTimeMS
	s.Status = u.Status
	s.LastCheckedAt = &checked
	s.LastResponseTimeMS = &ms
	return nil
}

func (m *Store) UserEmail(ctx context.Context, id domain.UserID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return "", repo.ErrNotFound
	}
	return u.Email, nil
}

// copySite detaches the pointer fields so callers cannot mutate the store.
func copySite(s *domain.MonitoredSite) domain.MonitoredSite {
	cp := *s
	if s.LastCheckedAt != nil {
		t := *s.LastCheckedAt
		cp.LastCheckedAt = &t
	}
	if s.LastResponseTimeMS != nil {
		v := *s.LastResponseTimeMS
		cp.LastResponseTimeMS = &v
	}
	return cp
}
