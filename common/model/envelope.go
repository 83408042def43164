package model

// SyncMeta 同步元数据，包裹在业务实体外层
// localId 由设备端生成且终生不变，是全局唯一的去重键；
// syncVersion 每次本地修改严格 +1，服务端据此做版本比较
type SyncMeta struct {
	LocalID      string     `json:"localId" binding:"required"`
	SyncStatus   SyncStatus `json:"syncStatus"`
	LastSyncedAt *int64     `json:"lastSyncedAt,omitempty"`
	SyncVersion  int        `json:"syncVersion"`
	DeviceID     string     `json:"deviceId" binding:"required"`
	ServerHash   string     `json:"serverHash,omitempty"`
}

// transition 执行状态迁移，非法迁移返回错误
func (m *SyncMeta) transition(to SyncStatus) error {
	if !m.SyncStatus.CanTransition(to) {
		return &ErrInvalidTransition{From: m.SyncStatus, To: to}
	}
	m.SyncStatus = to
	return nil
}

// MarkAsSyncing 标记为同步中（批量提交开始）
func (m *SyncMeta) MarkAsSyncing() error {
	return m.transition(SyncStatusSyncing)
}

// MarkAsFailed 标记为失败（网络错误、校验错误或服务端胜出的冲突）
func (m *SyncMeta) MarkAsFailed() error {
	return m.transition(SyncStatusFailed)
}

// MarkAsModified 标记为已修改，版本号 +1
// 任何影响内容的本地编辑都必须经过这里，保证 syncVersion 单调递增
func (m *SyncMeta) MarkAsModified() error {
	if err := m.transition(SyncStatusModified); err != nil {
		return err
	}
	m.SyncVersion++
	return nil
}

// MarkAsDeleted 标记为已删除（墓碑，仍需传播到服务端）
func (m *SyncMeta) MarkAsDeleted() error {
	return m.transition(SyncStatusDeleted)
}

// ackSynced 应用服务端确认：状态迁移到 SYNCED 并记录确认时间
func (m *SyncMeta) ackSynced(result *SyncResult) error {
	if err := m.transition(SyncStatusSynced); err != nil {
		return err
	}
	syncedAt := result.SyncedAt
	m.LastSyncedAt = &syncedAt
	return nil
}

// NeedsSync 判断是否需要（重新）同步
func (m *SyncMeta) NeedsSync() bool {
	return m.SyncStatus.NeedsSync()
}

// SyncableOrder 带同步元数据的订单信封
type SyncableOrder struct {
	Order *Order `json:"order" binding:"required"`
	SyncMeta
}

// NewSyncableOrder 从订单创建同步信封，localId 沿用订单 ID（设备端 UUID）
func NewSyncableOrder(order *Order, deviceID string) *SyncableOrder {
	return &SyncableOrder{
		Order: order,
		SyncMeta: SyncMeta{
			LocalID:     order.ID,
			SyncStatus:  SyncStatusPending,
			SyncVersion: 1,
			DeviceID:    deviceID,
		},
	}
}

// MarkAsSynced 应用服务端确认结果，采纳服务端分配的规范 ID
func (o *SyncableOrder) MarkAsSynced(result *SyncResult) error {
	if err := o.ackSynced(result); err != nil {
		return err
	}
	if result.ServerID != "" {
		o.Order.ID = result.ServerID
	}
	return nil
}

// SyncableTransaction 带同步元数据的交易信封
type SyncableTransaction struct {
	Transaction *Transaction `json:"transaction" binding:"required"`
	SyncMeta
}

// NewSyncableTransaction 从交易创建同步信封，localId 沿用交易 ID（设备端 UUID）
func NewSyncableTransaction(txn *Transaction, deviceID string) *SyncableTransaction {
	return &SyncableTransaction{
		Transaction: txn,
		SyncMeta: SyncMeta{
			LocalID:     txn.ID,
			SyncStatus:  SyncStatusPending,
			SyncVersion: 1,
			DeviceID:    deviceID,
		},
	}
}

// MarkAsSynced 应用服务端确认结果，采纳服务端分配的规范 ID
func (t *SyncableTransaction) MarkAsSynced(result *SyncResult) error {
	if err := t.ackSynced(result); err != nil {
		return err
	}
	if result.ServerID != "" {
		t.Transaction.ID = result.ServerID
	}
	return nil
}
