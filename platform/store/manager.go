package store

import "sync"

// LoadPolicy controls whether component state is loaded when a project
// opens.
type LoadPolicy int

const (
	// LoadSkip skips component-state loading on open. This is the default
	// under test: most tests never read persisted state and opening is
	// much faster without it.
	LoadSkip LoadPolicy = iota

	// LoadFull loads the complete component-state document on open.
	LoadFull
)

// String returns the string representation of the policy.
func (p LoadPolicy) String() string {
	switch p {
	case LoadSkip:
		return "skip"
	case LoadFull:
		return "full"
	default:
		return "unknown"
	}
}

// Manager tracks the load policy per project, plus a process default used
// for projects without an explicit override.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	policies map[string]LoadPolicy
	fallback LoadPolicy
}

// NewManager creates a manager with every project defaulting to LoadSkip.
func NewManager() *Manager {
	return &Manager{policies: make(map[string]LoadPolicy)}
}

// Policy returns the load policy for projectID: its explicit override when
// set, otherwise the manager default.
func (m *Manager) Policy(projectID string) LoadPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.policies[projectID]; ok {
		return p
	}
	return m.fallback
}

// Default returns the manager-wide default policy.
func (m *Manager) Default() LoadPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fallback
}

// SetDefault sets the manager-wide default policy and returns the previous
// value. Tests that exercise persistence flip this to LoadFull for the
// duration of their body.
func (m *Manager) SetDefault(p LoadPolicy) LoadPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.fallback
	m.fallback = p
	return prev
}

// SetPolicy sets the load policy for projectID and returns the previous
// value.
func (m *Manager) SetPolicy(projectID string, p LoadPolicy) LoadPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.policies[projectID]
	if !ok {
		prev = m.fallback
	}
	m.policies[projectID] = p
	return prev
}

// Forget drops the policy entry for a disposed project.
func (m *Manager) Forget(projectID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.policies, projectID)
}

// WithFullLoading runs fn with projectID forced to LoadFull, restoring the
// previous policy afterward even when fn fails.
func (m *Manager) WithFullLoading(projectID string, fn func() error) error {
	prev := m.SetPolicy(projectID, LoadFull)
	defer m.SetPolicy(projectID, prev)
	return fn()
}
