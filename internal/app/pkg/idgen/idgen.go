package idgen

import "github.com/google/uuid"

// NewLocalID 生成实体 localId
// 必须使用强随机 UUID：localId 是跨设备、跨时间的全局唯一去重键，永不复用
func NewLocalID() string {
	return uuid.New().String()
}

// NewDeviceID 生成设备 ID
func NewDeviceID() string {
	return uuid.New().String()
}
