package rpsync

import (
	"context"
	"errors"
	"time"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// ErrDuplicateLocalID localId 唯一约束冲突
// 两个请求对同一 localId 并发插入时，落败方收到该错误后应重读再对比
var ErrDuplicateLocalID = errors.New("local id already exists")

// RecordMeta 权威记录的同步元数据投影
// 对账引擎只需要这几个字段做比较，不加载完整业务数据
type RecordMeta struct {
	ServerID    string
	LocalID     string
	DeviceID    string
	SyncVersion int
	ServerHash  string
	Deleted     bool
}

// SyncRepository 同步存储接口（只定义，不实现）
// 实现在 MySQL（gorm），按 localId 查询/插入/条件更新：
// 条件更新以 sync_version 做 CAS，保证单实体对账的原子性
type SyncRepository interface {
	// GetOrderMeta 按 localId 查询订单元数据，不存在返回 nil
	GetOrderMeta(ctx context.Context, localID string) (*RecordMeta, error)

	// InsertOrder 插入新订单记录，localId 冲突返回 ErrDuplicateLocalID
	InsertOrder(ctx context.Context, o *model.SyncableOrder, serverHash string) error

	// UpdateOrder 条件更新订单（client wins 分支）
	// 仅当存储中 sync_version 仍等于 prevVersion 时生效，返回是否更新成功
	UpdateOrder(ctx context.Context, o *model.SyncableOrder, serverHash string, prevVersion int) (bool, error)

	// MarkOrderDeleted 订单打墓碑标记（软删除，待传播）
	MarkOrderDeleted(ctx context.Context, localID string) error

	// ListOrders 查询其他设备的订单（排除 excludeDeviceID），since 非空时做增量过滤
	ListOrders(ctx context.Context, excludeDeviceID string, since *time.Time) ([]*model.SyncableOrder, error)

	// ListDeletedOrderIDs 查询其他设备已删除订单的 localId 列表
	ListDeletedOrderIDs(ctx context.Context, excludeDeviceID string, since *time.Time) ([]string, error)

	// GetTransactionMeta 按 localId 查询交易元数据，不存在返回 nil
	GetTransactionMeta(ctx context.Context, localID string) (*RecordMeta, error)

	// InsertTransaction 插入新交易记录，localId 冲突返回 ErrDuplicateLocalID
	InsertTransaction(ctx context.Context, t *model.SyncableTransaction, serverHash string) error

	// MarkTransactionDeleted 交易打墓碑标记
	MarkTransactionDeleted(ctx context.Context, localID string) error

	// ListTransactions 查询其他设备的交易，since 非空时做增量过滤
	ListTransactions(ctx context.Context, excludeDeviceID string, since *time.Time) ([]*model.SyncableTransaction, error)

	// ListDeletedTransactionIDs 查询其他设备已删除交易的 localId 列表
	ListDeletedTransactionIDs(ctx context.Context, excludeDeviceID string, since *time.Time) ([]string, error)
}
