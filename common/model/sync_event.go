package model

// 同步事件实体类型
const (
	SyncEntityOrder       = "order"
	SyncEntityTransaction = "transaction"
)

// 同步事件动作
const (
	SyncActionUpsert = "upsert"
	SyncActionDelete = "delete"
)

// SyncEvent 同步变更事件
// 服务端接受写入后发布到 Redis 频道，在线终端收到后可立即发起增量拉取，
// 不必等待下一个轮询周期
type SyncEvent struct {
	EntityType string `json:"entity_type"`
	Action     string `json:"action"`
	LocalID    string `json:"local_id"`
	DeviceID   string `json:"device_id"`
	Timestamp  int64  `json:"timestamp"`
}

// SettlementJob 清算任务消息（apiserver → syncworker）
// 服务端每接受一笔新交易即投递一条，worker 按设备+营业日累计清算汇总
type SettlementJob struct {
	LocalID       string  `json:"local_id"`
	TransactionID string  `json:"transaction_id"`
	DeviceID      string  `json:"device_id"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	SyncedAt      int64   `json:"synced_at"`
}
