package squares

import "sync"

// Manager keeps one pool per chat.
type Manager struct {
	pools map[int64]*Pool
	mu    sync.RWMutex
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{pools: make(map[int64]*Pool)}
}

// Create opens a new pool in chatID hosted by hostID.
func (m *Manager) Create(chatID, hostID, price int64, maxPerUser int) (*Pool, error) {
	p, err := NewPool(chatID, hostID, price, maxPerUser)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[chatID]; ok {
		return nil, ErrPoolExists
	}
	m.pools[chatID] = p
	return p, nil
}

// Name returns the game's display name.
func (m *Manager) Name() string { return "Squares" }

// Command returns the command that opens a pool.
func (m *Manager) Command() string { return "squares" }

// Description returns a one-line rule summary.
func (m *Manager) Description() string {
	return "Claim squares on a 10x10 board. Each quarter's score picks a winning square; empty squares roll the money forward."
}

// Active reports whether chatID has a pool.
func (m *Manager) Active(chatID int64) bool {
	_, err := m.Get(chatID)
	return err == nil
}

// Get returns the pool running in chatID.
func (m *Manager) Get(chatID int64) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[chatID]
	if !ok {
		return nil, ErrNoActivePool
	}
	return p, nil
}

// Close removes the pool in chatID if it is still p.
func (m *Manager) Close(chatID int64, p *Pool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pools[chatID] == p {
		delete(m.pools, chatID)
	}
}
