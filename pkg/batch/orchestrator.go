package batch

import (
	"PicUtils/config"
	"PicUtils/internal/models"
	"PicUtils/pkg/copier"
	"PicUtils/pkg/database"
	"PicUtils/pkg/renamer"
	"PicUtils/pkg/scanner"
	"context"
	"log/slog"
)

// Orchestrator 把重命名器、复制器和操作日志组合在一起。
// 命令行和任务管理器都通过它执行操作，每次操作都会在日志库里留下一条记录。
type Orchestrator struct {
	Parser   *scanner.Parser
	Renamer  renamer.BatchRenamer
	Copier   copier.SelectiveCopier
	Store    database.Store
	Defaults config.Config

	logger *slog.Logger
}

func NewOrchestrator(cfg *config.Config, store database.Store, logger *slog.Logger) *Orchestrator {
	parser := scanner.NewParser(cfg.Media.Extensions)
	return &Orchestrator{
		Parser:  parser,
		Renamer: renamer.NewRenamer(parser, cfg.Media.PrefixLength, logger.With("module", "renamer")),
		Copier: copier.NewCopier(parser, copier.Options{
			SkipUnparsable: cfg.Copy.SkipUnparsable,
			Verify:         cfg.Copy.Verify,
		}, logger.With("module", "copier")),
		Store:    store,
		Defaults: *cfg,
		logger:   logger,
	}
}

// Rename 执行批量重命名并记录日志。prefix 已经过 renamer.ResolvePrefix 处理。
func (o *Orchestrator) Rename(ctx context.Context, dir, prefix string, startIndex int) (*models.Operation, error) {
	op := &models.Operation{
		Kind:       models.KindRename,
		Status:     models.OpRunning,
		Dir:        dir,
		Prefix:     prefix,
		StartIndex: startIndex,
	}
	o.begin(ctx, op)

	res, err := o.Renamer.Rename(dir, prefix, startIndex)
	if res != nil {
		op.TempPrefix = res.TempPrefix
		op.Mappings = res.Mappings
	}
	return op, o.finish(ctx, op, err)
}

// Copy 执行选择性复制并记录日志。
func (o *Orchestrator) Copy(ctx context.Context, dir, manifest string) (*models.Operation, *copier.Result, error) {
	op := &models.Operation{
		Kind:     models.KindCopy,
		Status:   models.OpRunning,
		Dir:      dir,
		Manifest: manifest,
	}
	o.begin(ctx, op)

	res, err := o.Copier.CopySelected(dir, manifest)
	if res != nil {
		op.Manifest = res.Manifest
		op.Destination = res.Destination
		op.Requested = res.Requested
		op.Copied = res.Copied
		for _, f := range res.Files {
			op.Mappings = append(op.Mappings, models.FileMapping{From: f, To: res.Destination})
		}
	}
	return op, res, o.finish(ctx, op, err)
}

// FixExtensions 按配置中的规则修正扩展名并记录日志。
func (o *Orchestrator) FixExtensions(ctx context.Context, dir string) (*models.Operation, error) {
	op := &models.Operation{Kind: models.KindFixExt, Status: models.OpRunning, Dir: dir}
	o.begin(ctx, op)

	mappings, err := o.Renamer.FixExtensions(dir, o.Defaults.Renamer.ExtensionFixes)
	op.Mappings = mappings
	return op, o.finish(ctx, op, err)
}

// begin 和 finish 写日志库失败只记录警告，不影响文件操作本身。
func (o *Orchestrator) begin(ctx context.Context, op *models.Operation) {
	if o.Store == nil {
		return
	}
	if err := o.Store.Operations().Create(ctx, op); err != nil {
		o.logger.Warn("无法写入操作日志", "kind", op.Kind, "error", err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, op *models.Operation, opErr error) error {
	if opErr != nil {
		op.Status = models.OpFailed
		op.Error = opErr.Error()
	} else {
		op.Status = models.OpSucceeded
	}
	if o.Store != nil && !op.ID.IsZero() {
		if err := o.Store.Operations().Update(ctx, op); err != nil {
			o.logger.Warn("无法更新操作日志", "id", op.ID.Hex(), "error", err)
		}
	}
	return opErr
}
