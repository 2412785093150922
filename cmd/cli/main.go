package main

import (
	"PicUtils/config"
	"PicUtils/pkg/batch"
	"PicUtils/pkg/copier"
	"PicUtils/pkg/database"
	"PicUtils/pkg/database/memory"
	"PicUtils/pkg/database/mongo"
	"PicUtils/pkg/errs"
	"PicUtils/pkg/logger"
	"PicUtils/pkg/maintenance"
	"PicUtils/pkg/renamer"
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const usageText = `用法: pic [-config 目录] [-dir 路径] <操作>

操作:
  rename           把目录中的媒体文件重命名为 前缀_序号.扩展名
  copy             按清单中的序号把文件复制到清单同名目录
  fix-ext          按配置修正扩展名（例如 .JPG -> .jpg）
  create-manifest  把目录中所有序号写入默认清单文件
  checksum         生成 SHA256SUMS 校验清单
  history          显示该目录最近的操作记录
  backup           用 mongodump 备份操作日志数据库

参数:
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

// app 持有一次命令行调用所需的全部组件
type app struct {
	dir          string
	in           *bufio.Reader
	out          io.Writer
	store        database.Store
	orchestrator *batch.Orchestrator
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	// --- 1. 解析命令行参数 ---
	fs := flag.NewFlagSet("pic", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configDir := fs.String("config", ".", "config.yaml 所在目录")
	dir := fs.String("dir", ".", "要处理的照片目录")
	fs.Usage = func() {
		fmt.Fprint(stdout, usageText)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errs.ErrInvalidArgument)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("需要且只能提供一个操作: %w", errs.ErrInvalidArgument)
	}
	action := fs.Arg(0)

	// --- 2. 初始化配置和日志 ---
	if err := config.LoadConfig(*configDir); err != nil {
		return fmt.Errorf("无法加载配置: %w", err)
	}
	closeLog, err := logger.InitLogger()
	if err != nil {
		return fmt.Errorf("无法初始化日志: %w", err)
	}
	defer closeLog()

	absDir, err := filepath.Abs(*dir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	a := &app{
		dir:          absDir,
		in:           bufio.NewReader(stdin),
		out:          stdout,
		store:        store,
		orchestrator: batch.NewOrchestrator(config.Get(), store, slog.Default()),
	}

	// --- 3. 根据操作执行相应的功能 ---
	switch action {
	case "rename":
		return a.rename(ctx)
	case "copy":
		return a.copy(ctx)
	case "fix-ext":
		return a.fixExt(ctx)
	case "create-manifest":
		return a.createManifest()
	case "checksum":
		return a.checksum(ctx)
	case "history":
		return a.history(ctx)
	case "backup":
		return a.backup(ctx)
	default:
		fs.Usage()
		return fmt.Errorf("未知的操作 '%s': %w", action, errs.ErrInvalidArgument)
	}
}

// openStore 在启用数据库时连接MongoDB，否则使用只在本次运行有效的内存日志
func openStore(ctx context.Context) (database.Store, error) {
	if !config.Get().Database.Enabled {
		return memory.NewStore(), nil
	}
	db, err := mongo.NewStore(ctx, config.Get())
	if err != nil {
		return nil, fmt.Errorf("无法连接到数据库: %w", err)
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("无法创建/验证数据库索引: %w", err)
	}
	return db, nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("读取输入失败: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) rename(ctx context.Context) error {
	input, err := a.prompt("请输入前缀 (输入 . 使用目录名): ")
	if err != nil {
		return err
	}
	prefix, err := renamer.ResolvePrefix(input, a.dir, config.Get().Renamer.TransliteratePrefix)
	if err != nil {
		return err
	}
	input, err = a.prompt("请输入起始序号: ")
	if err != nil {
		return err
	}
	start, err := renamer.ParseStartIndex(input)
	if err != nil {
		return err
	}

	op, err := a.orchestrator.Rename(ctx, a.dir, prefix, start)
	if op != nil {
		for _, m := range op.Mappings {
			fmt.Fprintf(a.out, "%s -> %s\n", m.From, m.To)
		}
	}
	if err != nil {
		if op != nil && op.TempPrefix != "" {
			fmt.Fprintf(a.out, "重命名中断，部分文件可能仍带有临时前缀 %q\n", op.TempPrefix)
		}
		return err
	}
	fmt.Fprintf(a.out, "已重命名 %d 个文件\n", len(op.Mappings))
	return nil
}

func (a *app) copy(ctx context.Context) error {
	input, err := a.prompt(fmt.Sprintf("请输入清单文件名 (输入 . 使用 %q): ", config.Get().Copy.DefaultManifest))
	if err != nil {
		return err
	}
	manifest := copier.ResolveManifest(input, config.Get().Copy.DefaultManifest)
	if manifest == "" {
		return fmt.Errorf("清单文件名不能为空: %w", errs.ErrInvalidArgument)
	}

	_, res, err := a.orchestrator.Copy(ctx, a.dir, manifest)
	if err != nil {
		return err
	}
	for _, f := range res.Skipped {
		fmt.Fprintf(a.out, "跳过没有序号的文件: %s\n", f)
	}
	fmt.Fprintf(a.out, "已复制 %d 个文件到 %s（清单中共 %d 个序号）\n", res.Copied, res.Destination, res.Requested)
	return nil
}

func (a *app) fixExt(ctx context.Context) error {
	op, err := a.orchestrator.FixExtensions(ctx, a.dir)
	if op != nil {
		for _, m := range op.Mappings {
			fmt.Fprintf(a.out, "%s -> %s\n", m.From, m.To)
		}
	}
	return err
}

func (a *app) newMaintenance() (maintenance.Maintenance, error) {
	logDir := filepath.Join(os.TempDir(), "picutils")
	if config.Get().Logger.Path != "" {
		logDir = filepath.Dir(config.Get().Logger.Path)
	}
	return maintenance.NewMaintenance(logDir, 0, a.orchestrator.Parser)
}

func (a *app) createManifest() error {
	out := filepath.Join(a.dir, config.Get().Copy.DefaultManifest)
	if _, err := os.Lstat(out); err == nil {
		return fmt.Errorf("清单 %s 已存在，不会覆盖: %w", out, errs.ErrCollision)
	}
	m, err := a.newMaintenance()
	if err != nil {
		return err
	}
	defer m.Close()
	n, err := m.GenerateNumberManifest(a.dir, out)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "已把 %d 个序号写入 %s，删掉不想要的行后即可执行 copy\n", n, out)
	return nil
}

func (a *app) checksum(ctx context.Context) error {
	m, err := a.newMaintenance()
	if err != nil {
		return err
	}
	defer m.Close()
	out := filepath.Join(a.dir, "SHA256SUMS")
	if err := m.GenerateChecksumManifest(ctx, a.dir, out); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "校验清单已写入 %s\n", out)
	return nil
}

func (a *app) history(ctx context.Context) error {
	if !config.Get().Database.Enabled {
		fmt.Fprintln(a.out, "未启用数据库 (database.enabled)，没有保存的操作记录")
		return nil
	}
	ops, err := a.store.Operations().ListByDir(ctx, a.dir, 20)
	if err != nil {
		return fmt.Errorf("获取操作记录失败: %w", err)
	}
	if len(ops) == 0 {
		fmt.Fprintf(a.out, "%s 没有操作记录\n", a.dir)
		return nil
	}
	for _, op := range ops {
		fmt.Fprintf(a.out, "%s  %-8s %-9s %d 个文件", op.CreatedAt.Format("2006-01-02 15:04:05"), op.Kind, op.Status, len(op.Mappings))
		if op.TempPrefix != "" {
			fmt.Fprintf(a.out, "  临时前缀=%s", op.TempPrefix)
		}
		if op.Error != "" {
			fmt.Fprintf(a.out, "  错误: %s", op.Error)
		}
		fmt.Fprintln(a.out)
	}
	return nil
}

func (a *app) backup(ctx context.Context) error {
	if !config.Get().Database.Enabled {
		return fmt.Errorf("未启用数据库，无需备份: %w", errs.ErrInvalidArgument)
	}
	m, err := a.newMaintenance()
	if err != nil {
		return err
	}
	defer m.Close()
	return m.BackupDatabase(ctx, config.Get().Database.URI, config.Get().Database.Name, a.dir)
}
