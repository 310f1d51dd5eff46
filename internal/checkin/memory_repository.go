package checkin

import (
	"context"
	"sort"
	"sync"
	"time"

	"wellcheck-api/internal/common"
)

// MemoryRepository is a process-local Repository used by tests and the memory driver
type MemoryRepository struct {
	mu        sync.RWMutex
	instances map[common.CheckID]*CheckInstance
	order     []common.CheckID

	// Injected failures for tests
	CreateErr     error
	GetErr        error
	TransitionErr error
	ListErr       error
}

// NewMemoryRepository creates an empty in-memory check instance store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		instances: make(map[common.CheckID]*CheckInstance),
	}
}

func (m *MemoryRepository) CreateCheckInstance(ctx context.Context, instance *CheckInstance) error {
	if err := validateInstance(instance); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.order = append(m.order, instance.ID)
	instance.Seq = int64(len(m.order))
	m.instances[instance.ID] = cloneInstance(instance)
	return nil
}

// GetLatestCheckInstance breaks CreatedAt ties by insertion order
func (m *MemoryRepository) GetLatestCheckInstance(ctx context.Context, userID common.UserID) (*CheckInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *CheckInstance
	for _, id := range m.order {
		instance := m.instances[id]
		if instance.UserID != userID {
			continue
		}
		if latest == nil || !instance.CreatedAt.Before(latest.CreatedAt) {
			latest = instance
		}
	}
	if latest == nil {
		return nil, common.NotFoundError{Resource: "CheckInstance", ID: "latest for " + string(userID)}
	}
	return cloneInstance(latest), nil
}

func (m *MemoryRepository) GetCheckInstance(ctx context.Context, checkID common.CheckID) (*CheckInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	instance, ok := m.instances[checkID]
	if !ok {
		return nil, common.NotFoundError{Resource: "CheckInstance", ID: string(checkID)}
	}
	return cloneInstance(instance), nil
}

func (m *MemoryRepository) UpdateCheckInstanceStatus(ctx context.Context, checkID common.CheckID, status common.CheckStatus) error {
	if !status.IsValid() {
		return common.ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	instance, ok := m.instances[checkID]
	if !ok {
		return common.NotFoundError{Resource: "CheckInstance", ID: string(checkID)}
	}
	instance.Status = status
	return nil
}

func (m *MemoryRepository) TransitionStatus(ctx context.Context, checkID common.CheckID, from, to common.CheckStatus, resolution Resolution, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.TransitionErr != nil {
		return false, m.TransitionErr
	}

	instance, ok := m.instances[checkID]
	if !ok {
		return false, common.NotFoundError{Resource: "CheckInstance", ID: string(checkID)}
	}
	if instance.Status != from {
		return false, nil
	}

	instance.Status = to
	instance.Resolution = resolution
	if to.IsTerminal() {
		resolvedAt := at
		instance.ResolvedAt = &resolvedAt
	}
	return true, nil
}

func (m *MemoryRepository) MarkPromptDelivered(ctx context.Context, checkID common.CheckID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	instance, ok := m.instances[checkID]
	if !ok {
		return common.NotFoundError{Resource: "CheckInstance", ID: string(checkID)}
	}
	instance.PromptDelivered = true
	return nil
}

func (m *MemoryRepository) ListPendingByUser(ctx context.Context, userID common.UserID) ([]*CheckInstance, error) {
	return m.filter(func(c *CheckInstance) bool {
		return c.UserID == userID && c.IsPending()
	}, false, 0)
}

func (m *MemoryRepository) ListPending(ctx context.Context) ([]*CheckInstance, error) {
	return m.filter(func(c *CheckInstance) bool {
		return c.IsPending()
	}, false, 0)
}

func (m *MemoryRepository) ListByUser(ctx context.Context, userID common.UserID, limit int) ([]*CheckInstance, error) {
	return m.filter(func(c *CheckInstance) bool {
		return c.UserID == userID
	}, true, limit)
}

// filter returns matching copies in creation order, or reversed when newestFirst
func (m *MemoryRepository) filter(match func(*CheckInstance) bool, newestFirst bool, limit int) ([]*CheckInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	result := make([]*CheckInstance, 0)
	for _, id := range m.order {
		if instance := m.instances[id]; match(instance) {
			result = append(result, cloneInstance(instance))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if newestFirst {
		for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
			result[i], result[j] = result[j], result[i]
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func cloneInstance(instance *CheckInstance) *CheckInstance {
	copied := *instance
	if instance.ResolvedAt != nil {
		resolvedAt := *instance.ResolvedAt
		copied.ResolvedAt = &resolvedAt
	}
	return &copied
}
