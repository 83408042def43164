package entity

import "time"

// DeviceSettlement 设备清算汇总实体
// syncworker 消费清算任务后按 设备+营业日 维度累计，供对账报表使用
type DeviceSettlement struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DeviceID    string    `gorm:"column:device_id;type:varchar(64);not null;uniqueIndex:uk_device_date"`
	SettleDate  string    `gorm:"column:settle_date;type:varchar(10);not null;uniqueIndex:uk_device_date"`
	TotalAmount float64   `gorm:"column:total_amount;type:decimal(12,2);not null;default:0"`
	TxnCount    int64     `gorm:"column:txn_count;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

// TableName 指定表名
func (DeviceSettlement) TableName() string {
	return "device_settlements"
}
