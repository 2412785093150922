package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timestamps 结构体嵌入到其他模型中，用于追踪创建和更新时间。
type Timestamps struct {
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// OperationKind 区分日志中记录的操作类型。
type OperationKind string

const (
	KindRename OperationKind = "rename"
	KindCopy   OperationKind = "copy"
	KindFixExt OperationKind = "fix-ext"
)

// OperationStatus 是一次操作的最终状态。
type OperationStatus string

const (
	OpRunning   OperationStatus = "running"
	OpSucceeded OperationStatus = "succeeded"
	OpFailed    OperationStatus = "failed"
)

// FileMapping 记录一个文件从哪个名字变成了哪个名字（复制时 To 是目标路径）。
type FileMapping struct {
	From string `bson:"from" json:"from"`
	To   string `bson:"to" json:"to"`
}

// Operation 是一次重命名或复制操作的日志记录，对应MongoDB中的一个文档。
// 重命名中途失败时，TempPrefix 是手动恢复文件名的唯一线索。
type Operation struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Kind   OperationKind   `bson:"kind" json:"kind"`
	Status OperationStatus `bson:"status" json:"status"`
	Dir    string          `bson:"dir" json:"dir"`

	// 重命名参数
	Prefix     string `bson:"prefix,omitempty" json:"prefix,omitempty"`
	StartIndex int    `bson:"startIndex,omitempty" json:"startIndex,omitempty"`
	TempPrefix string `bson:"tempPrefix,omitempty" json:"tempPrefix,omitempty"`

	// 复制参数和统计
	Manifest    string `bson:"manifest,omitempty" json:"manifest,omitempty"`
	Destination string `bson:"destination,omitempty" json:"destination,omitempty"`
	Requested   int    `bson:"requested,omitempty" json:"requested,omitempty"`
	Copied      int    `bson:"copied,omitempty" json:"copied,omitempty"`

	Mappings []FileMapping `bson:"mappings" json:"mappings"`
	Error    string        `bson:"error,omitempty" json:"error,omitempty"`

	Timestamps `bson:",inline"`
}
