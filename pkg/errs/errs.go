// Package errs 定义整个工具共用的错误分类。
// 调用方用 fmt.Errorf("...: %w", errs.ErrXxx) 包装，再用 errors.Is 判断类别。
package errs

import "errors"

var (
	// ErrParse 文件名不符合 "_数字.扩展名" 约定，或清单中某行不是整数。
	ErrParse = errors.New("解析失败")
	// ErrNotFound 清单文件或目录不存在。
	ErrNotFound = errors.New("文件不存在")
	// ErrCollision 重命名的目标文件名已被占用。
	ErrCollision = errors.New("目标文件已存在")
	// ErrInvalidArgument 命令行用法错误，或起始序号不是非负整数。
	ErrInvalidArgument = errors.New("无效的参数")
)
