package renamer

import (
	"PicUtils/config"
	"PicUtils/internal/models"
	"PicUtils/pkg/errs"
	"PicUtils/pkg/scanner"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Result 描述一次批量重命名的结果。
// 出错时 Result 仍然返回，Mappings 只包含已经完成的部分。
type Result struct {
	Dir        string               `json:"dir"`
	Prefix     string               `json:"prefix"`
	StartIndex int                  `json:"startIndex"`
	TempPrefix string               `json:"tempPrefix"`
	Mappings   []models.FileMapping `json:"mappings"`
}

type BatchRenamer interface {
	Rename(dir, prefix string, startIndex int) (*Result, error)
	FixExtensions(dir string, fixes []config.ExtensionFix) ([]models.FileMapping, error)
}

type defaultRenamer struct {
	parser       *scanner.Parser
	prefixLength int
	logger       *slog.Logger

	// randomLetters 生成 n 个随机ASCII字母，测试时可以替换。
	randomLetters func(n int) string
}

// NewRenamer 创建重命名器。prefixLength 是临时前缀的长度。
func NewRenamer(parser *scanner.Parser, prefixLength int, logger *slog.Logger) BatchRenamer {
	if prefixLength <= 0 {
		prefixLength = 6
	}
	return &defaultRenamer{
		parser:        parser,
		prefixLength:  prefixLength,
		logger:        logger,
		randomLetters: randomLetters,
	}
}

func randomLetters(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// Rename 把 dir 中所有媒体文件按排序顺序重命名为 prefix_序号.扩展名，序号从 startIndex 开始。
//
// 分两轮进行：第一轮先改成一个随机临时前缀，第二轮重新读取目录后再改成最终名字，
// 这样新旧名字之间不会互相覆盖。任何一次重命名的目标已存在都会返回 errs.ErrCollision，
// 已经完成的重命名不会回滚。
func (r *defaultRenamer) Rename(dir, prefix string, startIndex int) (*Result, error) {
	result := &Result{Dir: dir, Prefix: prefix, StartIndex: startIndex}
	if startIndex < 0 {
		return result, fmt.Errorf("起始序号必须是非负整数，当前为 %d: %w", startIndex, errs.ErrInvalidArgument)
	}

	photos, err := r.parser.ListMediaFiles(dir)
	if err != nil {
		return result, err
	}
	if len(photos) == 0 {
		r.logger.Info("目录中没有需要重命名的媒体文件", "dir", dir)
		return result, nil
	}

	result.TempPrefix = r.createRandomPrefix(photos)
	r.logger.Info("开始重命名", "dir", dir, "count", len(photos), "prefix", prefix, "start", startIndex, "tempPrefix", result.TempPrefix)

	// 第一轮：原名 -> 临时名
	first, err := r.renameAll(dir, photos, result.TempPrefix, startIndex)
	result.Mappings = first
	if err != nil {
		return result, fmt.Errorf("第一轮重命名失败（文件可能停留在临时前缀 %q 下）: %w", result.TempPrefix, err)
	}

	// 第二轮必须重新读取目录，名字已经变了
	renamed, err := r.parser.ListMediaFiles(dir)
	if err != nil {
		return result, err
	}
	// 序号超过 9999 后位数变宽，按字符串排序会打乱顺序，必须按临时序号排序
	orderByIndex(renamed)
	second, err := r.renameAll(dir, renamed, prefix, startIndex)
	result.Mappings = compose(first, second)
	if err != nil {
		return result, fmt.Errorf("第二轮重命名失败（部分文件停留在临时前缀 %q 下）: %w", result.TempPrefix, err)
	}

	r.logger.Info("重命名完成", "dir", dir, "count", len(second))
	return result, nil
}

// createRandomPrefix 反复生成候选前缀，直到没有任何文件名以它开头。
func (r *defaultRenamer) createRandomPrefix(photos []string) string {
	for {
		candidate := r.randomLetters(r.prefixLength)
		if !anyHasPrefix(photos, candidate) {
			return candidate
		}
		r.logger.Debug("临时前缀与现有文件冲突，重新生成", "candidate", candidate)
	}
}

func anyHasPrefix(names []string, prefix string) bool {
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// renameAll 把 files[i] 重命名为 FormatName(prefix, start+i, 扩展名)。
// 返回已经完成的映射，遇到第一个错误即停止。
func (r *defaultRenamer) renameAll(dir string, files []string, prefix string, start int) ([]models.FileMapping, error) {
	done := make([]models.FileMapping, 0, len(files))
	for i, name := range files {
		target := scanner.FormatName(prefix, start+i, scanner.Extension(name))
		if err := r.renameOne(dir, name, target); err != nil {
			return done, err
		}
		done = append(done, models.FileMapping{From: name, To: target})
	}
	return done, nil
}

func (r *defaultRenamer) renameOne(dir, from, to string) error {
	if from == to {
		return nil
	}
	src := filepath.Join(dir, from)
	dst := filepath.Join(dir, to)
	// os.Rename 在 POSIX 上会静默覆盖目标，必须先检查
	if taken, err := occupied(src, dst); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("无法将 %s 重命名为 %s: %w", from, to, errs.ErrCollision)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("重命名 %s -> %s 失败: %w", from, to, err)
	}
	r.logger.Debug("文件已重命名", "from", from, "to", to)
	return nil
}

// occupied 判断 dst 是否已被另一个文件占用。
// 大小写不敏感的文件系统上 "a.JPG" 和 "a.jpg" 是同一个文件，不算冲突。
func occupied(src, dst string) (bool, error) {
	dstInfo, err := os.Lstat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("检查目标文件 %s 失败: %w", dst, err)
	}
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return false, fmt.Errorf("读取源文件 %s 失败: %w", src, err)
	}
	return !os.SameFile(srcInfo, dstInfo), nil
}

// orderByIndex 按文件名中的序号排序，没有序号的排在最后并按名字排序。
func orderByIndex(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, errA := scanner.SequenceNumber(names[i])
		b, errB := scanner.SequenceNumber(names[j])
		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}
			return names[i] < names[j]
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return names[i] < names[j]
		}
	})
}

// compose 把 原名->临时名 与 临时名->最终名 合并成 原名->最终名。
// 第二轮没有处理到的文件保留 原名->临时名，以便手动恢复。
func compose(first, second []models.FileMapping) []models.FileMapping {
	original := make(map[string]string, len(first))
	for _, m := range first {
		original[m.To] = m.From
	}
	out := make([]models.FileMapping, 0, len(first))
	for _, m := range second {
		from := m.From
		if o, ok := original[m.From]; ok {
			from = o
			delete(original, m.From)
		}
		out = append(out, models.FileMapping{From: from, To: m.To})
	}
	for _, m := range first {
		if _, pending := original[m.To]; pending {
			out = append(out, m)
		}
	}
	return out
}

// FixExtensions 把扩展名等于 fix.From 的普通文件改为 fix.To，例如 IMG_0001.JPG -> IMG_0001.jpg。
func (r *defaultRenamer) FixExtensions(dir string, fixes []config.ExtensionFix) ([]models.FileMapping, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("目录 %s 不存在: %w", dir, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("读取目录 %s 失败: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var done []models.FileMapping
	for _, name := range names {
		ext := scanner.Extension(name)
		for _, fix := range fixes {
			if ext != fix.From {
				continue
			}
			target := scanner.BaseName(name) + fix.To
			if err := r.renameOne(dir, name, target); err != nil {
				return done, err
			}
			done = append(done, models.FileMapping{From: name, To: target})
			break
		}
	}
	r.logger.Info("扩展名修正完成", "dir", dir, "count", len(done))
	return done, nil
}

// ResolvePrefix 处理用户输入的前缀："." 表示使用目录本身的名字。
// transliterate 为 true 时把非ASCII字符转写为ASCII（例如 "北京" -> "Bei Jing"）。
func ResolvePrefix(input, dir string, transliterate bool) (string, error) {
	prefix := input
	if input == "." {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("无法获取目录 %s 的绝对路径: %w", dir, err)
		}
		prefix = filepath.Base(abs)
	}
	if transliterate {
		prefix = strings.TrimSpace(unidecode.Unidecode(prefix))
	}
	if strings.ContainsAny(prefix, `/\`) {
		return "", fmt.Errorf("前缀 %q 不能包含路径分隔符: %w", prefix, errs.ErrInvalidArgument)
	}
	return prefix, nil
}

// ParseStartIndex 解析用户输入的起始序号，必须是非负整数。
func ParseStartIndex(input string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, fmt.Errorf("起始序号 %q 不是整数: %w", input, errs.ErrInvalidArgument)
	}
	if n < 0 {
		return 0, fmt.Errorf("起始序号 %d 不能为负数: %w", n, errs.ErrInvalidArgument)
	}
	return n, nil
}
