// Package memory 提供 database.Store 的内存实现，
// 用于未启用MongoDB时的命令行和服务器，以及测试。
package memory

import (
	"PicUtils/internal/models"
	"PicUtils/pkg/database"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	operations *operationStore
}

var _ database.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{operations: &operationStore{ops: make(map[primitive.ObjectID]models.Operation)}}
}

func (s *Store) Operations() database.OperationStore     { return s.operations }
func (s *Store) EnsureIndexes(ctx context.Context) error { return nil }
func (s *Store) Close(ctx context.Context) error         { return nil }

type operationStore struct {
	mu  sync.RWMutex
	ops map[primitive.ObjectID]models.Operation
}

func (s *operationStore) Create(ctx context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op.CreatedAt = time.Now()
	op.UpdatedAt = op.CreatedAt
	if op.ID.IsZero() {
		op.ID = primitive.NewObjectID()
	}
	if _, exists := s.ops[op.ID]; exists {
		return fmt.Errorf("操作 %s 已存在", op.ID.Hex())
	}
	s.ops[op.ID] = clone(*op)
	return nil
}

func (s *operationStore) Update(ctx context.Context, op *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ops[op.ID]; !exists {
		return fmt.Errorf("找不到操作 %s", op.ID.Hex())
	}
	op.UpdatedAt = time.Now()
	s.ops[op.ID] = clone(*op)
	return nil
}

func (s *operationStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, nil
	}
	c := clone(op)
	return &c, nil
}

func (s *operationStore) List(ctx context.Context, page, limit int) ([]models.Operation, int64, error) {
	all := s.sorted(func(models.Operation) bool { return true })
	total := int64(len(all))
	start := (page - 1) * limit
	if start < 0 || start >= len(all) {
		return []models.Operation{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *operationStore) ListByDir(ctx context.Context, dir string, limit int) ([]models.Operation, error) {
	ops := s.sorted(func(op models.Operation) bool { return op.Dir == dir })
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

// sorted 返回满足条件的记录，最新的在前。
func (s *operationStore) sorted(keep func(models.Operation) bool) []models.Operation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Operation, 0, len(s.ops))
	for _, op := range s.ops {
		if keep(op) {
			out = append(out, clone(op))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func clone(op models.Operation) models.Operation {
	op.Mappings = append([]models.FileMapping(nil), op.Mappings...)
	return op
}
