package task

import (
	"PicUtils/config"
	"PicUtils/internal/models"
	"PicUtils/pkg/batch"
	"PicUtils/pkg/database"
	"PicUtils/pkg/errs"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus 定义了任务可能的状态。
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// ErrBusy 表示已有任务在运行。
var ErrBusy = errors.New("任务管理器忙")

// Task 结构体代表一个具体的后台任务。
type Task struct {
	ID        string               `json:"id"`
	Kind      models.OperationKind `json:"kind"`
	Dir       string               `json:"dir"`
	Status    TaskStatus           `json:"status"`
	Error     string               `json:"error,omitempty"`
	StartTime time.Time            `json:"startTime"`
	EndTime   *time.Time           `json:"endTime,omitempty"`

	// Operation 是任务结束后写入日志库的那条记录
	Operation *models.Operation `json:"operation,omitempty"`

	// Result 是操作特有的结果，例如复制统计
	Result any `json:"result,omitempty"`
}

// Manager 结构体是任务管理器。同一时间只允许一个任务在运行，
// 避免两个操作同时修改同一个目录。
type Manager struct {
	tasks map[string]*Task
	mu    sync.RWMutex

	orchestrator *batch.Orchestrator
	store        database.Store
	logger       *slog.Logger
}

// NewManager 创建并返回一个新的任务管理器实例。
func NewManager(cfg *config.Config, store database.Store, logger *slog.Logger) *Manager {
	return &Manager{
		tasks:        make(map[string]*Task),
		orchestrator: batch.NewOrchestrator(cfg, store, logger),
		store:        store,
		logger:       logger,
	}
}

// Orchestrator 返回当前使用的编排器。
func (m *Manager) Orchestrator() *batch.Orchestrator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orchestrator
}

// Reconfigure 用新配置重建编排器，已在运行的任务不受影响。
func (m *Manager) Reconfigure(cfg *config.Config) {
	o := batch.NewOrchestrator(cfg, m.store, m.logger)
	m.mu.Lock()
	m.orchestrator = o
	m.mu.Unlock()
}

// StartRenameTask 在后台启动一次批量重命名。prefix 必须已经过 renamer.ResolvePrefix 处理。
func (m *Manager) StartRenameTask(dir, prefix string, startIndex int) (string, error) {
	return m.start(models.KindRename, dir, func(ctx context.Context, o *batch.Orchestrator, t *Task) error {
		op, err := o.Rename(ctx, dir, prefix, startIndex)
		t.Operation = op
		return err
	})
}

// StartCopyTask 在后台启动一次选择性复制。
func (m *Manager) StartCopyTask(dir, manifest string) (string, error) {
	return m.start(models.KindCopy, dir, func(ctx context.Context, o *batch.Orchestrator, t *Task) error {
		op, res, err := o.Copy(ctx, dir, manifest)
		t.Operation = op
		if res != nil {
			t.Result = res
		}
		return err
	})
}

// StartFixExtTask 在后台启动一次扩展名修正。
func (m *Manager) StartFixExtTask(dir string) (string, error) {
	return m.start(models.KindFixExt, dir, func(ctx context.Context, o *batch.Orchestrator, t *Task) error {
		op, err := o.FixExtensions(ctx, dir)
		t.Operation = op
		return err
	})
}

type runFunc func(ctx context.Context, o *batch.Orchestrator, t *Task) error

func (m *Manager) start(kind models.OperationKind, dir string, run runFunc) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, task := range m.tasks {
		if task.Status == StatusPending || task.Status == StatusRunning {
			return "", fmt.Errorf("另一个任务正在进行中 (ID: %s)，请等待其完成后再试: %w", task.ID, ErrBusy)
		}
	}

	newTask := &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		Dir:       dir,
		Status:    StatusPending,
		StartTime: time.Now(),
	}
	m.tasks[newTask.ID] = newTask

	go m.run(newTask, m.orchestrator, run)

	return newTask.ID, nil
}

// GetTaskStatus 根据任务ID返回任务当前状态的副本。
func (m *Manager) GetTaskStatus(taskID string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("找不到任务ID %s: %w", taskID, errs.ErrNotFound)
	}
	snapshot := *task
	return &snapshot, nil
}

func (m *Manager) run(task *Task, o *batch.Orchestrator, run runFunc) {
	m.mu.Lock()
	task.Status = StatusRunning
	m.mu.Unlock()

	m.logger.Info("任务启动", "task", task.ID, "kind", task.Kind, "dir", task.Dir)

	// 操作在一个临时 Task 上执行，结束后在锁内一次性写回
	var out Task
	err := run(context.Background(), o, &out)

	m.mu.Lock()
	defer m.mu.Unlock()

	task.Operation = out.Operation
	task.Result = out.Result
	endTime := time.Now()
	task.EndTime = &endTime
	if err != nil {
		task.Status = StatusFailed
		task.Error = err.Error()
		m.logger.Error("任务失败", "task", task.ID, "error", err)
		return
	}
	task.Status = StatusCompleted
	m.logger.Info("任务完成", "task", task.ID, "duration", endTime.Sub(task.StartTime))
}
