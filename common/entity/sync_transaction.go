package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SyncTransaction 交易同步实体（服务端权威存储）
// 交易是只追加记录，同一 local_id 下内容不允许变化
type SyncTransaction struct {
	ID              string `gorm:"column:id;primaryKey;type:varchar(64)"`
	LocalID         string `gorm:"column:local_id;type:varchar(64);not null;uniqueIndex:uk_local_id"`
	ReferenceNumber string `gorm:"column:reference_number;type:varchar(64);not null"`
	OrderID         string `gorm:"column:order_id;type:varchar(64);index:idx_order_id"`

	// 交易数据
	Payload datatypes.JSON `gorm:"column:payload;type:json;not null"`

	// 同步元数据
	DeviceID    string `gorm:"column:device_id;type:varchar(64);not null;index:idx_device_id"`
	SyncVersion int    `gorm:"column:sync_version;not null;default:1"`
	ServerHash  string `gorm:"column:server_hash;type:varchar(64);not null"`
	Deleted     bool   `gorm:"column:deleted;not null;default:false"`

	// 时间戳
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;index:idx_updated_at"`
}

// TableName 指定表名
func (SyncTransaction) TableName() string {
	return "sync_transactions"
}
