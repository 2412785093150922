package copier

import (
	"PicUtils/pkg/errs"
	"PicUtils/pkg/hasher"
	"PicUtils/pkg/scanner"
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Result 是一次选择性复制的统计。
// Requested 是清单中不重复序号的个数，而不是行数。
type Result struct {
	Manifest           string   `json:"manifest"`
	Destination        string   `json:"destination"`
	DestinationExisted bool     `json:"destinationExisted"`
	Requested          int      `json:"requested"`
	Copied             int      `json:"copied"`
	Files              []string `json:"files"`
	Skipped            []string `json:"skipped,omitempty"`
}

type SelectiveCopier interface {
	CopySelected(dir, manifestPath string) (*Result, error)
}

type Options struct {
	// SkipUnparsable 为 true 时跳过没有序号的文件；默认中止整个复制。
	SkipUnparsable bool
	// Verify 为 true 时复制后比较SHA-256。
	Verify bool
}

type defaultCopier struct {
	parser *scanner.Parser
	opts   Options
	logger *slog.Logger
}

func NewCopier(parser *scanner.Parser, opts Options, logger *slog.Logger) SelectiveCopier {
	return &defaultCopier{parser: parser, opts: opts, logger: logger}
}

// ResolveManifest 处理用户输入的清单文件名，"." 表示使用默认文件名。
func ResolveManifest(input, defaultName string) string {
	input = strings.TrimSpace(input)
	if input == "." {
		return defaultName
	}
	return input
}

// DestinationFor 返回清单对应的目标目录：清单路径去掉扩展名。
func DestinationFor(manifestPath string) string {
	return filepath.Join(filepath.Dir(manifestPath), scanner.BaseName(filepath.Base(manifestPath)))
}

// ReadManifest 读取清单文件，每行一个整数，重复的序号合并。
// 空行被忽略；任何一行不是整数都会返回 errs.ErrParse。
func ReadManifest(path string) (map[int]struct{}, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("清单文件 %s 不存在: %w", path, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("无法打开清单文件 %s: %w", path, err)
	}
	defer file.Close()

	wanted := make(map[int]struct{})
	sc := bufio.NewScanner(file)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("清单 %s 第 %d 行 %q 不是整数: %w", path, lineNo, line, errs.ErrParse)
		}
		wanted[n] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("读取清单文件 %s 失败: %w", path, err)
	}
	return wanted, nil
}

// CopySelected 把 dir 中序号出现在清单里的媒体文件复制到以清单命名的子目录。
// 相对的 manifestPath 相对于 dir 解析。清单读取失败时不会创建目录。
func (c *defaultCopier) CopySelected(dir, manifestPath string) (*Result, error) {
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(dir, manifestPath)
	}
	result := &Result{Manifest: manifestPath, Destination: DestinationFor(manifestPath)}

	wanted, err := ReadManifest(manifestPath)
	if err != nil {
		return result, err
	}
	result.Requested = len(wanted)

	// 例如清单名为 ".txt" 时目标目录就是源目录，复制会清空原文件
	if same, err := sameDir(dir, result.Destination); err != nil {
		return result, err
	} else if same {
		return result, fmt.Errorf("清单 %s 对应的目标目录就是源目录: %w", manifestPath, errs.ErrInvalidArgument)
	}

	existed, err := ensureDir(result.Destination)
	if err != nil {
		return result, err
	}
	result.DestinationExisted = existed
	if existed {
		c.logger.Info("目标目录已存在", "dir", result.Destination)
	} else {
		c.logger.Info("目标目录已创建", "dir", result.Destination)
	}

	photos, err := c.parser.ListMediaFiles(dir)
	if err != nil {
		return result, err
	}
	for _, photo := range photos {
		n, err := scanner.SequenceNumber(photo)
		if err != nil {
			if c.opts.SkipUnparsable {
				c.logger.Warn("文件名没有序号，跳过", "file", photo)
				result.Skipped = append(result.Skipped, photo)
				continue
			}
			return result, err
		}
		if _, ok := wanted[n]; !ok {
			continue
		}
		dst := filepath.Join(result.Destination, photo)
		if err := c.copyOne(filepath.Join(dir, photo), dst); err != nil {
			return result, err
		}
		c.logger.Info("已复制", "file", photo)
		result.Copied++
		result.Files = append(result.Files, photo)
	}

	c.logger.Info("复制完成", "requested", result.Requested, "copied", result.Copied)
	return result, nil
}

func (c *defaultCopier) copyOne(src, dst string) error {
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("复制 %s 失败: %w", filepath.Base(src), err)
	}
	if !c.opts.Verify {
		return nil
	}
	same, err := hasher.SameContent(src, dst)
	if err != nil {
		return fmt.Errorf("校验 %s 失败: %w", filepath.Base(src), err)
	}
	if !same {
		return fmt.Errorf("校验 %s 失败: 副本内容与原文件不一致", filepath.Base(src))
	}
	return nil
}

func sameDir(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// ensureDir 创建目录；目录已存在时返回 true。同名的普通文件视为冲突。
func ensureDir(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return true, nil
	case err == nil:
		return false, fmt.Errorf("%s 已存在且不是目录: %w", path, errs.ErrCollision)
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("检查目录 %s 失败: %w", path, err)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return false, fmt.Errorf("无法创建目录 %s: %w", path, err)
	}
	return false, nil
}

// copyFile 复制文件内容，并保留权限位和修改时间。已存在的目标会被覆盖。
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	// O_TRUNC 打开同一个文件会清空源文件
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return fmt.Errorf("%s 与源文件是同一个文件: %w", dst, errs.ErrCollision)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	// 只有修改时间是可移植的，访问时间也设为同一值
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
