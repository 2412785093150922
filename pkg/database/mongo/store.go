package mongo

import (
	"PicUtils/config"
	"PicUtils/internal/models"
	"PicUtils/pkg/database"
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store 是 database.Store 接口的MongoDB实现。
type Store struct {
	client     *mongo.Client
	db         *mongo.Database
	operations *operationStore
}

// 确保 Store 实现了 database.Store 接口 (编译时检查)
var _ database.Store = (*Store)(nil)

// operationStore 封装了与 "operations" 集合相关的所有操作。
type operationStore struct {
	coll *mongo.Collection
}

// NewStore 创建并返回一个新的 Store 实例，并建立与MongoDB的连接。
func NewStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	slog.Info("正在连接到 MongoDB...", "uri", cfg.Database.URI)
	clientCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(cfg.Database.URI)
	client, err := mongo.Connect(clientCtx, clientOpts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(clientCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	slog.Info("MongoDB 连接成功")

	db := client.Database(cfg.Database.Name)
	return &Store{
		client:     client,
		db:         db,
		operations: &operationStore{coll: db.Collection("operations")},
	}, nil
}

func (s *Store) Operations() database.OperationStore {
	return s.operations
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	slog.Info("正在确保数据库索引存在...")
	operationIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_createdat"),
		},
		{
			Keys:    bson.D{{Key: "dir", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_dir_createdat"),
		},
		{
			// 重命名失败后按临时前缀查找原始文件名
			Keys:    bson.D{{Key: "tempPrefix", Value: 1}},
			Options: options.Index().SetName("idx_tempprefix").SetSparse(true),
		},
	}
	if _, err := s.operations.coll.Indexes().CreateMany(ctx, operationIndexes); err != nil {
		slog.Error("为 operations 集合创建索引失败", "error", err)
		return err
	}
	slog.Info("Operations 集合索引已验证/创建。")
	return nil
}

// --- operationStore 方法实现 ---

func (s *operationStore) Create(ctx context.Context, op *models.Operation) error {
	op.CreatedAt = time.Now()
	op.UpdatedAt = op.CreatedAt
	if op.ID.IsZero() {
		op.ID = primitive.NewObjectID()
	}
	_, err := s.coll.InsertOne(ctx, op)
	return err
}

func (s *operationStore) Update(ctx context.Context, op *models.Operation) error {
	op.UpdatedAt = time.Now()
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": op.ID}, op)
	return err
}

func (s *operationStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Operation, error) {
	var op models.Operation
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&op)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (s *operationStore) List(ctx context.Context, page, limit int) ([]models.Operation, int64, error) {
	total, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, err
	}
	skip := int64((page - 1) * limit)
	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var ops []models.Operation
	if err = cursor.All(ctx, &ops); err != nil {
		return nil, 0, err
	}
	return ops, total, nil
}

func (s *operationStore) ListByDir(ctx context.Context, dir string, limit int) ([]models.Operation, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, bson.M{"dir": dir}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ops []models.Operation
	if err = cursor.All(ctx, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}
