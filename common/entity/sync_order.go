package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SyncOrder 订单同步实体（服务端权威存储）
// local_id 唯一索引保证每个 localId 只有一行权威记录；
// 订单聚合整体以 JSON 存储，查询字段单独成列
type SyncOrder struct {
	ID          string `gorm:"column:id;primaryKey;type:varchar(64)"`
	LocalID     string `gorm:"column:local_id;type:varchar(64);not null;uniqueIndex:uk_local_id"`
	OrderNumber string `gorm:"column:order_number;type:varchar(64);not null"`

	// 订单数据
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
func (SyncOrder) TableName() string {
	return "sync_orders"
}
