package model

// ConflictResolution 冲突解决策略
type ConflictResolution string

const (
	// ResolutionServerWins 保留服务端版本（当前服务端唯一使用的策略）
	ResolutionServerWins ConflictResolution = "SERVER_WINS"
	// ResolutionClientWins 保留客户端版本
	ResolutionClientWins ConflictResolution = "CLIENT_WINS"
	// ResolutionMerge 双方合并（业务自定义逻辑）
	ResolutionMerge ConflictResolution = "MERGE"
	// ResolutionManual 需要人工介入处理
	ResolutionManual ConflictResolution = "MANUAL"
)

// ConflictInfo 同步冲突详情
type ConflictInfo struct {
	Field       string             `json:"field"`
	LocalValue  string             `json:"localValue"`
	ServerValue string             `json:"serverValue"`
	Resolution  ConflictResolution `json:"resolution"`
}

// SyncResult 单个实体的同步结果（服务端响应）
type SyncResult struct {
	Success   bool           `json:"success"`
	ServerID  string         `json:"serverId,omitempty"`
	SyncedAt  int64          `json:"syncedAt"`
	Message   string         `json:"message,omitempty"`
	Conflicts []ConflictInfo `json:"conflicts,omitempty"`
}

// Conflicted 判断结果中是否携带冲突信息
func (r *SyncResult) Conflicted() bool {
	return len(r.Conflicts) > 0
}
