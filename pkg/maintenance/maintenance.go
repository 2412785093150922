package maintenance

import (
	"PicUtils/pkg/hasher"
	"PicUtils/pkg/scanner"
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Maintenance 定义了维护工具的接口
type Maintenance interface {
	// GenerateNumberManifest 把目录中所有可解析的序号写入清单文件（每行一个），
	// 用户删掉不想要的行后即可作为复制清单使用。
	GenerateNumberManifest(dir, outputPath string) (int, error)
	GenerateChecksumManifest(ctx context.Context, dir, outputPath string) error
	BackupDatabase(ctx context.Context, dbURI, dbName, outputPath string) error
	Close()
}

type defaultMaintenance struct {
	parser     *scanner.Parser
	logger     *log.Logger
	logFile    *os.File
	numWorkers int
}

// NewMaintenance 创建一个新的维护模块实例，日志写入 logDir/maintenance.log。
func NewMaintenance(logDir string, workerCount int, parser *scanner.Parser) (Maintenance, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("无法创建日志目录: %w", err)
	}
	logFilePath := filepath.Join(logDir, "maintenance.log")
	file, err := os.OpenFile(logFilePath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("无法初始化维护模块日志: %w", err)
	}
	logger := log.New(file, "MAINTENANCE: ", log.LstdFlags|log.Lshortfile)
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &defaultMaintenance{
		parser:     parser,
		logger:     logger,
		logFile:    file,
		numWorkers: workerCount,
	}, nil
}

func (m *defaultMaintenance) Close() {
	if m.logFile != nil {
		m.logFile.Close()
	}
}

func (m *defaultMaintenance) GenerateNumberManifest(dir, outputPath string) (int, error) {
	m.logger.Println("--- 开始生成序号清单 ---")
	photos, err := m.parser.ListMediaFiles(dir)
	if err != nil {
		return 0, err
	}

	seen := make(map[int]struct{}, len(photos))
	numbers := make([]int, 0, len(photos))
	for _, photo := range photos {
		n, err := scanner.SequenceNumber(photo)
		if err != nil {
			m.logger.Printf("跳过没有序号的文件: %s", photo)
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var b strings.Builder
	for _, n := range numbers {
		fmt.Fprintf(&b, "%d\n", n)
	}
	if err := os.WriteFile(outputPath, []byte(b.String()), 0644); err != nil {
		return 0, fmt.Errorf("无法写入序号清单: %w", err)
	}
	m.logger.Printf("序号清单已写入 %s，共 %d 个序号", outputPath, len(numbers))
	return len(numbers), nil
}

// GenerateChecksumManifest 并发地为目录中的媒体文件生成 "sha256 *文件名" 校验清单，
// 输出按文件名排序，与 sha256sum -c 兼容。
func (m *defaultMaintenance) GenerateChecksumManifest(ctx context.Context, dir, outputPath string) error {
	m.logger.Println("--- 开始生成校验清单 ---")
	photos, err := m.parser.ListMediaFiles(dir)
	if err != nil {
		return err
	}

	type checksum struct {
		name, hash string
	}

	// 1. 设置并发工作池
	var wg sync.WaitGroup
	tasks := make(chan string, m.numWorkers)
	results := make(chan checksum, len(photos))

	for i := 0; i < m.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range tasks {
				hash, err := hasher.CalculateSHA256(filepath.Join(dir, name))
				if err != nil {
					m.logger.Printf("警告: 计算文件 %s 的哈希失败: %v", name, err)
					continue
				}
				results <- checksum{name: name, hash: hash}
			}
		}()
	}

	// 2. 分发任务
dispatch:
	for _, name := range photos {
		select {
		case <-ctx.Done():
			break dispatch
		case tasks <- name:
		}
	}
	close(tasks)
	wg.Wait()
	close(results)
	if err := ctx.Err(); err != nil {
		return err
	}

	// 3. 排序后一次性写入，避免并发写文件
	sums := make([]checksum, 0, len(photos))
	for r := range results {
		sums = append(sums, r)
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].name < sums[j].name })

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("无法创建校验清单: %w", err)
	}
	w := bufio.NewWriter(file)
	for _, s := range sums {
		fmt.Fprintf(w, "%s *%s\n", s.hash, s.name)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("写入校验清单失败: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	m.logger.Printf("校验清单已写入 %s，共 %d 个文件", outputPath, len(sums))
	return nil
}

// BackupDatabase 调用 mongodump 工具来备份操作日志数据库
func (m *defaultMaintenance) BackupDatabase(ctx context.Context, dbURI, dbName, outputPath string) error {
	m.logger.Println("--- 开始执行数据库备份 ---")

	if _, err := exec.LookPath("mongodump"); err != nil {
		m.logger.Println("致命错误: 在系统 PATH 中找不到 'mongodump' 命令。")
		return fmt.Errorf("'mongodump' command not found in PATH")
	}

	backupFileName := fmt.Sprintf("db_backup_%s.gz", time.Now().Format("2006-01-02_150405"))
	archiveFile := filepath.Join(outputPath, backupFileName)
	m.logger.Printf("数据库备份文件将被保存到: %s", archiveFile)

	cmd := exec.CommandContext(ctx, "mongodump",
		"--uri", dbURI,
		"--db", dbName,
		"--archive="+archiveFile,
		"--gzip",
	)

	// 将命令的输出连接到我们的日志，以便实时查看进度和错误
	cmd.Stdout = m.logger.Writer()
	cmd.Stderr = m.logger.Writer()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("执行 mongodump 失败: %w", err)
	}

	m.logger.Println("--- 数据库备份成功 ---")
	return nil
}
