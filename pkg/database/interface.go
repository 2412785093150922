package database

import (
	"PicUtils/internal/models"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store 是一个顶层接口，它组合了所有特定数据模型的存储接口。
type Store interface {
	Operations() OperationStore
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

// OperationStore 定义了操作日志 (Operation) 相关的数据库操作。
type OperationStore interface {
	Create(ctx context.Context, op *models.Operation) error
	Update(ctx context.Context, op *models.Operation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Operation, error)
	// List 按创建时间倒序分页返回操作日志。
	List(ctx context.Context, page, limit int) ([]models.Operation, int64, error)
	// ListByDir 返回某个目录最近的操作，最新的在前。
	ListByDir(ctx context.Context, dir string, limit int) ([]models.Operation, error)
}
