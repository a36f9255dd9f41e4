package repository

import (
	"context"
	"sync"

	"yankey-ledger/internal/domain"
)

// MemoryPartitions in-memory PartitionSource，DB 禁用时的 fallback
// 每个 tenantID 对应一组内存仓库；插入用锁内 double-check，
// 并发首次访问同一商户时最多创建一组
type MemoryPartitions struct {
	mu         sync.RWMutex
	partitions map[string]*Partition
}

func NewMemoryPartitions() *MemoryPartitions {
	return &MemoryPartitions{
		partitions: map[string]*Partition{},
	}
}

var _ PartitionSource = (*MemoryPartitions)(nil)

func (m *MemoryPartitions) Partition(_ context.Context, tenantID string) (*Partition, error) {
	if tenantID == "" {
		return nil, domain.ErrRegistryConfig
	}

	m.mu.RLock()
	p, ok := m.partitions[tenantID]
	m.mu.RUnlock()
	if ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.partitions[tenantID]; ok {
		return p, nil
	}
	p = &Partition{
		Users:        NewMemoryUsersRepo(),
		Operators:    NewMemoryOperatorsRepo(),
		Transactions: NewMemoryTransactionsRepo(),
		Activities:   NewMemoryActivitiesRepo(),
	}
	m.partitions[tenantID] = p
	return p, nil
}
