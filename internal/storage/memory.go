package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps every entity in maps keyed by id. Secondary lookups are
// linear scans under the read lock.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]User
	calculations map[string]Calculation
	projects     map[string]Project
	sessions     map[string]Session
	now          func() time.Time
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		users:        make(map[string]User),
		calculations: make(map[string]Calculation),
		projects:     make(map[string]Project),
		sessions:     make(map[string]Session),
		now:          o.now,
	}
}

var _ Store = (*MemoryStore)(nil)

// uniqueID draws ids until one is unused in taken. Caller holds the write lock.
func uniqueID[T any](taken map[string]T) (string, error) {
	for {
		id, err := newID()
		if err != nil {
			return "", err
		}
		if _, ok := taken[id]; !ok {
			return id, nil
		}
	}
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u = u.clone()
	return &u, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	return m.findUser(func(u User) bool { return u.Username == username })
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	return m.findUser(func(u User) bool { return u.Email == email })
}

func (m *MemoryStore) findUser(match func(User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			u = u.clone()
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateUser(_ context.Context, nu NewUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == nu.Username || u.Email == nu.Email {
			return nil, ErrDuplicate
		}
	}

	id, err := uniqueID(m.users)
	if err != nil {
		return nil, err
	}
	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	u := User{
		ID:             id,
		Username:       nu.Username,
		Email:          nu.Email,
		HashedPassword: nu.HashedPassword,
		FirstName:      cloneString(nu.FirstName),
		LastName:       cloneString(nu.LastName),
		Role:           role,
		CreatedAt:      m.now(),
	}
	m.users[id] = u
	u = u.clone()
	return &u, nil
}

func (m *MemoryStore) GetCalculation(_ context.Context, id string) (*Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.calculations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = c.clone()
	return &c, nil
}

func (m *MemoryStore) ListCalculationsByUser(_ context.Context, userID string) ([]Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Calculation, 0)
	for _, c := range m.calculations {
		if c.UserID != nil && *c.UserID == userID {
			out = append(out, c.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateCalculation(_ context.Context, nc NewCalculation) (*Calculation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := uniqueID(m.calculations)
	if err != nil {
		return nil, err
	}
	now := m.now()
	c := Calculation{
		ID:          id,
		UserID:      nc.UserID,
		Type:        nc.Type,
		Name:        nc.Name,
		Description: nc.Description,
		Inputs:      nc.Inputs,
		Results:     nc.Results,
		Material:    nc.Material,
		CreatedAt:   now,
		UpdatedAt:   now,
	}.clone()
	m.calculations[id] = c
	c = c.clone()
	return &c, nil
}

func (m *MemoryStore) UpdateCalculation(_ context.Context, id string, p CalculationPatch) (*Calculation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.calculations[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.apply(&c)
	c.UpdatedAt = m.now()
	m.calculations[id] = c
	c = c.clone()
	return &c, nil
}

func (m *MemoryStore) DeleteCalculation(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.calculations[id]; !ok {
		return false, nil
	}
	delete(m.calculations, id)
	return true, nil
}

func (m *MemoryStore) GetProject(_ context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = p.clone()
	return &p, nil
}

func (m *MemoryStore) ListProjectsByUser(_ context.Context, userID string) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Project, 0)
	for _, p := range m.projects {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateProject(_ context.Context, np NewProject) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := uniqueID(m.projects)
	if err != nil {
		return nil, err
	}
	status := np.Status
	if status == "" {
		status = StatusInProgress
	}
	now := m.now()
	p := Project{
		ID:           id,
		UserID:       cloneString(np.UserID),
		Name:         np.Name,
		Description:  cloneString(np.Description),
		Calculations: cloneIDs(np.Calculations),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.projects[id] = p
	p = p.clone()
	return &p, nil
}

func (m *MemoryStore) UpdateProject(_ context.Context, id string, patch ProjectPatch) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	patch.apply(&p)
	p.UpdatedAt = m.now()
	m.projects[id] = p
	p = p.clone()
	return &p, nil
}

func (m *MemoryStore) DeleteProject(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return false, nil
	}
	delete(m.projects, id)
	return true, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := uniqueID(m.sessions)
	if err != nil {
		return nil, err
	}
	s := Session{ID: id, UserID: userID, ExpiresAt: m.now().Add(SessionTTL)}
	m.sessions[id] = s
	return &s, nil
}

// GetSession drops an expired session on sight and reports it as absent.
func (m *MemoryStore) GetSession(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return false, nil
	}
	delete(m.sessions, id)
	return true, nil
}
