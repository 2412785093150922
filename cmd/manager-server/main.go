// 文件: cmd/manager-server/main.go
package main

import (
	"PicUtils/config"
	"PicUtils/internal/api"
	"PicUtils/internal/task"
	"PicUtils/pkg/database"
	"PicUtils/pkg/database/memory"
	"PicUtils/pkg/database/mongo"
	"PicUtils/pkg/logger"
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	configDir := flag.String("config", ".", "config.yaml 所在目录")
	flag.Parse()

	// --- 1. 初始化 ---
	if err := config.LoadConfig(*configDir); err != nil {
		log.Fatalf("FATAL: 无法加载配置: %v", err)
	}
	closeLog, err := logger.InitLogger()
	if err != nil {
		log.Fatalf("FATAL: 无法初始化日志: %v", err)
	}
	defer closeLog()
	slog.Info("应用启动")
	defer slog.Info("应用关闭")

	cfg := config.Get()

	// --- 2. 打开操作日志库 ---
	ctx := context.Background()
	var db database.Store
	if cfg.Database.Enabled {
		db, err = mongo.NewStore(ctx, cfg)
		if err != nil {
			slog.Error("FATAL: 无法连接到数据库", "error", err)
			os.Exit(1)
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			slog.Error("FATAL: 无法创建/验证数据库索引", "error", err)
			os.Exit(1)
		}
		slog.Info("数据库连接成功并已验证索引")
	} else {
		db = memory.NewStore()
		slog.Warn("未启用数据库，操作日志只保存在内存中")
	}
	defer db.Close(ctx)

	// --- 3. 创建任务管理器 ---
	taskManager := task.NewManager(cfg, db, slog.Default().With("module", "task"))

	// --- 4. 设置并启动HTTP服务器 ---
	router := api.RegisterRoutes(taskManager, db, *configDir)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("HTTP服务器正在启动...", "地址", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("无法启动HTTP服务器", "error", err)
			os.Exit(1)
		}
	}()

	// --- 5. 等待退出信号 ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP服务器关闭失败", "error", err)
	}
}
