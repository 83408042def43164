package model

// BatchSyncRequest 批量同步请求（终端 → 服务端）
type BatchSyncRequest struct {
	DeviceID          string                 `json:"deviceId" binding:"required"`
	Orders            []*SyncableOrder       `json:"orders"`
	Transactions      []*SyncableTransaction `json:"transactions"`
	LastSyncTimestamp *int64                 `json:"lastSyncTimestamp,omitempty"`
}

// BatchSyncResponse 批量同步响应（服务端 → 终端）
// 单个实体的失败或冲突不影响整体 success；success=false 仅表示整批请求失败
type BatchSyncResponse struct {
	Success            bool           `json:"success"`
	SyncedOrders       []*SyncResult  `json:"syncedOrders"`
	SyncedTransactions []*SyncResult  `json:"syncedTransactions"`
	ServerUpdates      *ServerUpdates `json:"serverUpdates,omitempty"`
	NextSyncToken      string         `json:"nextSyncToken,omitempty"`
}

// ServerUpdates 服务端增量数据（其他设备产生的变更）
// 删除列表携带的是 localId，终端按 localId 移除本地副本
type ServerUpdates struct {
	Orders                []*SyncableOrder       `json:"orders"`
	Transactions          []*SyncableTransaction `json:"transactions"`
	DeletedOrderIDs       []string               `json:"deletedOrderIds"`
	DeletedTransactionIDs []string               `json:"deletedTransactionIds"`
}

// ErrorResponse 整批请求失败时的结构化错误响应
type ErrorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
	Timestamp  int64  `json:"timestamp"`
}

// 错误码常量
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeMissingDeviceID = "MISSING_DEVICE_ID"
	ErrCodeSyncFailed      = "SYNC_FAILED"
	ErrCodeFetchFailed     = "FETCH_FAILED"
)
