package model

import "fmt"

// SyncStatus 同步状态枚举
// 终端本地实体的同步生命周期状态，状态值与线上 API 协议保持一致
type SyncStatus string

const (
	// SyncStatusPending 仅存在于本地，尚未同步到服务端
	SyncStatusPending SyncStatus = "PENDING"
	// SyncStatusSyncing 同步请求已发出，等待服务端响应
	SyncStatusSyncing SyncStatus = "SYNCING"
	// SyncStatusSynced 已成功同步到服务端
	SyncStatusSynced SyncStatus = "SYNCED"
	// SyncStatusFailed 同步失败，等待重试
	SyncStatusFailed SyncStatus = "FAILED"
	// SyncStatusModified 同步后本地又被修改，需要重新同步
	SyncStatusModified SyncStatus = "MODIFIED"
	// SyncStatusDeleted 本地已删除，删除操作待传播到服务端
	SyncStatusDeleted SyncStatus = "DELETED"
)

// validTransitions 状态迁移表
// 状态只能按表内路径迁移，禁止任意赋值（如 SYNCED 不经修改不能回到 SYNCING）
var validTransitions = map[SyncStatus][]SyncStatus{
	SyncStatusPending:  {SyncStatusSyncing, SyncStatusModified, SyncStatusDeleted},
	SyncStatusSyncing:  {SyncStatusSynced, SyncStatusFailed, SyncStatusPending, SyncStatusDeleted},
	SyncStatusSynced:   {SyncStatusModified, SyncStatusDeleted},
	SyncStatusFailed:   {SyncStatusSyncing, SyncStatusModified, SyncStatusDeleted},
	SyncStatusModified: {SyncStatusSyncing, SyncStatusModified, SyncStatusDeleted},
	SyncStatusDeleted:  {},
}

// CanTransition 判断能否从当前状态迁移到目标状态
func (s SyncStatus) CanTransition(to SyncStatus) bool {
	for _, next := range validTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid 判断状态值是否合法
func (s SyncStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// NeedsSync 判断该状态下的实体是否需要（重新）同步
func (s SyncStatus) NeedsSync() bool {
	return s == SyncStatusPending || s == SyncStatusModified || s == SyncStatusFailed
}

// ErrInvalidTransition 非法状态迁移错误
type ErrInvalidTransition struct {
	From SyncStatus
	To   SyncStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid sync status transition: %s -> %s", e.From, e.To)
}
