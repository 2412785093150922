package scanner

import (
	"PicUtils/pkg/errs"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// sequencePattern 匹配 "_数字" 紧跟扩展名（最后一个 '.' 到结尾）的文件名结尾。
var sequencePattern = regexp.MustCompile(`_(\d+)\.[^.]*$`)

// Parser 负责从文件名中提取扩展名、序号，并判断文件是否为照片/视频。
// 扩展名白名单在构造时注入，之后不可变。
type Parser struct {
	extensions map[string]struct{}
}

// NewParser 根据扩展名白名单创建解析器，白名单大小写敏感。
func NewParser(extensions []string) *Parser {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[ext] = struct{}{}
	}
	return &Parser{extensions: set}
}

// Extension 返回从最后一个 '.' 开始到结尾的子串，没有 '.' 时返回空串。
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i:]
}

// BaseName 返回去掉扩展名后的文件名。
func BaseName(name string) string {
	return strings.TrimSuffix(name, Extension(name))
}

// SequenceNumber 提取扩展名前 "_" 之后的数字串。
func SequenceNumber(name string) (int, error) {
	matches := sequencePattern.FindStringSubmatch(name)
	if len(matches) < 2 {
		return 0, fmt.Errorf("文件名 %q 中没有 '_数字' 序号: %w", name, errs.ErrParse)
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("文件名 %q 的序号 %q 无法转换为整数: %w", name, matches[1], errs.ErrParse)
	}
	return n, nil
}

// FormatName 生成 "前缀_0001.ext"；前缀为空时生成 "0001.ext"。
// 序号超过 9999 时宽度自然变大，这不是错误。
func FormatName(prefix string, index int, ext string) string {
	if prefix != "" {
		return fmt.Sprintf("%s_%04d%s", prefix, index, ext)
	}
	return fmt.Sprintf("%04d%s", index, ext)
}

// HasMediaExtension 只检查扩展名是否在白名单中，不访问文件系统。
func (p *Parser) HasMediaExtension(name string) bool {
	_, ok := p.extensions[Extension(name)]
	return ok
}

// IsMedia 判断 path 是否为普通文件且扩展名在白名单中。
// 目录、不存在的路径、以及大小写不匹配的扩展名（如 .JPEG、.mov）都返回 false。
func (p *Parser) IsMedia(path string) bool {
	if !p.HasMediaExtension(filepath.Base(path)) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ListMediaFiles 返回 dir 中所有媒体文件的文件名（不含目录），按字节序升序排列。
// 每次调用都会重新读取目录，不做缓存。
func (p *Parser) ListMediaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("目录 %s 不存在: %w", dir, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("读取目录 %s 失败: %w", dir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if p.IsMedia(filepath.Join(dir, name)) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}
