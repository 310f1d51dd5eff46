package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"wellcheck-api/internal/common"
)

// MemoryRepository is a process-local Repository used by tests and the memory driver
type MemoryRepository struct {
	mu       sync.RWMutex
	users    map[common.UserID]*User
	contacts map[common.UserID][]*Contact
	seq      int64

	// Injected failures for tests
	GetUserErr   error
	ListUsersErr error
	StampErr     error
	ContactsErr  error
}

// NewMemoryRepository creates an empty in-memory registry
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[common.UserID]*User),
		contacts: make(map[common.UserID][]*Contact),
	}
}

func (m *MemoryRepository) GetUser(ctx context.Context, userID common.UserID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}

	user, ok := m.users[userID]
	if !ok {
		return nil, common.NotFoundError{Resource: "User", ID: string(userID)}
	}
	return cloneUser(user), nil
}

func (m *MemoryRepository) UpsertUser(ctx context.Context, user *User) error {
	if err := validateUser(user); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	stored := cloneUser(user)
	if existing, ok := m.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.LastCheckDate = existing.LastCheckDate
		stored.AwaitingResponse = existing.AwaitingResponse
	} else {
		m.seq++
		// Keep creation order stable for users created within the same clock tick
		stored.CreatedAt = now.Add(time.Duration(m.seq))
	}
	stored.UpdatedAt = now
	m.users[user.ID] = stored

	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryRepository) UpdateSettings(ctx context.Context, userID common.UserID, update UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, common.NotFoundError{Resource: "User", ID: string(userID)}
	}

	update.apply(user)
	user.UpdatedAt = time.Now()
	return cloneUser(user), nil
}

func (m *MemoryRepository) ListActiveUsers(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListUsersErr != nil {
		return nil, m.ListUsersErr
	}

	users := make([]*User, 0, len(m.users))
	for _, user := range m.users {
		if user.IsActive {
			users = append(users, cloneUser(user))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (m *MemoryRepository) StampLastCheckDate(ctx context.Context, userID common.UserID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StampErr != nil {
		return false, m.StampErr
	}

	user, ok := m.users[userID]
	if !ok {
		return false, common.NotFoundError{Resource: "User", ID: string(userID)}
	}
	if user.CheckedOn(date) {
		return false, nil
	}

	stamped := date
	user.LastCheckDate = &stamped
	user.UpdatedAt = time.Now()
	return true, nil
}

func (m *MemoryRepository) SetAwaitingResponse(ctx context.Context, userID common.UserID, awaiting bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return common.NotFoundError{Resource: "User", ID: string(userID)}
	}
	user.AwaitingResponse = awaiting
	user.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) GetContacts(ctx context.Context, userID common.UserID) ([]*Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ContactsErr != nil {
		return nil, m.ContactsErr
	}

	stored := m.contacts[userID]
	contacts := make([]*Contact, len(stored))
	for i, c := range stored {
		copied := *c
		contacts[i] = &copied
	}
	return contacts, nil
}

// AddContact appends to the user's list; insertion order is creation order
func (m *MemoryRepository) AddContact(ctx context.Context, contact *Contact) error {
	if err := prepareContact(contact); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *contact
	m.contacts[contact.UserID] = append(m.contacts[contact.UserID], &copied)
	return nil
}

func (m *MemoryRepository) RemoveContact(ctx context.Context, userID common.UserID, contactID common.ContactID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.contacts[userID]
	for i, c := range stored {
		if c.ID == contactID {
			m.contacts[userID] = append(stored[:i:i], stored[i+1:]...)
			return nil
		}
	}
	return common.NotFoundError{Resource: "Contact", ID: string(contactID)}
}

func cloneUser(user *User) *User {
	copied := *user
	if user.LastCheckDate != nil {
		date := *user.LastCheckDate
		copied.LastCheckDate = &date
	}
	return &copied
}
