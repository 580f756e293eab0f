package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kukuhub/storefront/internal/storage"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

var sessionKeys = map[Role]string{
	RoleBuyer:  storage.KeyBuyerSession,
	RoleSeller: storage.KeySellerSession,
	RoleAdmin:  storage.KeyAdminSession,
}

// Session is one authenticated identity. Buyer, seller and admin
// sessions are disjoint; a process may hold all three at once.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Manager owns session state and mirrors it to the snapshot store
// under fixed keys. It replaces the ambient auth flags of the old
// storefront: created at startup, injected into dependents, torn
// down by Logout.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[Role]Session
	snapshots storage.SnapshotStore
	logger    *slog.Logger
}

func NewManager(ctx context.Context, snapshots storage.SnapshotStore, logger *slog.Logger) *Manager {
	m := &Manager{
		sessions:  make(map[Role]Session),
		snapshots: snapshots,
		logger:    logger,
	}

	for role, key := range sessionKeys {
		raw, ok, err := snapshots.Get(ctx, key)
		if err != nil {
			logger.Warn("failed to read session snapshot", "role", role, "error", err)
			continue
		}
		if !ok {
			continue
		}

		var s Session
		if err := json.Unmarshal(raw, &s); err != nil || s.UserID == "" {
			// Corrupt session data means logged out, nothing more.
			logger.Warn("discarding unreadable session snapshot", "role", role)
			continue
		}
		s.Role = role
		m.sessions[role] = s
	}

	return m
}

func (m *Manager) Login(ctx context.Context, s Session) error {
	key, ok := sessionKeys[s.Role]
	if !ok {
		return fmt.Errorf("unknown role %q", s.Role)
	}
	if s.UserID == "" {
		return fmt.Errorf("session user id is required")
	}

	m.mu.Lock()
	m.sessions[s.Role] = s
	m.mu.Unlock()

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := m.snapshots.Put(ctx, key, raw); err != nil {
		m.logger.Warn("failed to persist session", "role", s.Role, "error", err)
	}
	return nil
}

// Logout tears down every session and erases all persisted flags.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.sessions = make(map[Role]Session)
	m.mu.Unlock()

	for role, key := range sessionKeys {
		if err := m.snapshots.Delete(ctx, key); err != nil {
			m.logger.Warn("failed to erase session snapshot", "role", role, "error", err)
		}
	}
}

func (m *Manager) Session(role Role) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[role]
	return s, ok
}

func (m *Manager) Buyer() (Session, bool)  { return m.Session(RoleBuyer) }
func (m *Manager) Seller() (Session, bool) { return m.Session(RoleSeller) }
func (m *Manager) Admin() (Session, bool)  { return m.Session(RoleAdmin) }
