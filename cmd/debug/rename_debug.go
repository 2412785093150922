//go:build ignore
// +build ignore

// ^^^ 在运行此脚本前，请注释掉上面两行

package main

import (
	"PicUtils/config"
	"PicUtils/pkg/batch"
	"PicUtils/pkg/database/memory"
	"PicUtils/pkg/logger"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

const testRootDir = "_debug_rename"

// 这个脚本在临时目录里走一遍完整流程：生成文件 -> 重命名 -> 写清单 -> 复制，
// 并把每一步的目录内容打印出来，方便人工检查。
func main() {
	log.Println("========================================")
	log.Println("===      重命名与复制流程调试程序      ===")
	log.Println("========================================")

	setupTestEnvironment()
	defer cleanupTestEnvironment()

	l, err := logger.New(os.Stdout, "debug", "text")
	must(err)
	slog.SetDefault(l)

	cfg := config.Default()
	store := memory.NewStore()
	o := batch.NewOrchestrator(cfg, store, l)
	ctx := context.Background()

	// 1. 重命名
	op, err := o.Rename(ctx, testRootDir, "debug", 1)
	must(err)
	log.Printf("重命名完成，临时前缀为 %s", op.TempPrefix)
	for _, m := range op.Mappings {
		fmt.Printf("  %s -> %s\n", m.From, m.To)
	}
	listDir(testRootDir)

	// 2. 挑选偶数序号写入清单，然后复制
	manifest := filepath.Join(testRootDir, "Good Ones.txt")
	must(os.WriteFile(manifest, []byte("2\n4\n4\n6\n"), 0644))
	_, res, err := o.Copy(ctx, testRootDir, "Good Ones.txt")
	must(err)
	log.Printf("复制完成: 请求 %d 个序号，复制 %d 个文件到 %s", res.Requested, res.Copied, res.Destination)
	listDir(res.Destination)

	// 3. 打印操作日志
	ops, total, err := store.Operations().List(ctx, 1, 10)
	must(err)
	log.Printf("操作日志中共有 %d 条记录", total)
	for _, op := range ops {
		fmt.Printf("  %s %s %s\n", op.Kind, op.Status, op.Dir)
	}

	fmt.Println("\n✅ 重命名与复制流程执行完毕！")
}

func setupTestEnvironment() {
	log.Println("--- 正在设置测试环境 ---")
	cleanupTestEnvironment()
	must(os.MkdirAll(testRootDir, 0755))
	for _, name := range []string{"IMG_3.JPG", "IMG_1.NEF", "IMG_2.jpg", "DSC_0004.jpg", "DSC_0005.MOV", "DSC_0006.jpeg", "readme.txt"} {
		must(os.WriteFile(filepath.Join(testRootDir, name), []byte(name), 0644))
	}
}

func cleanupTestEnvironment() {
	os.RemoveAll(testRootDir)
}

func listDir(dir string) {
	entries, err := os.ReadDir(dir)
	must(err)
	log.Printf("目录 %s 的内容:", dir)
	for _, e := range entries {
		fmt.Printf("  %s\n", e.Name())
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
