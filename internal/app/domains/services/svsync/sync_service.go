package svsync

import (
	"context"
	"time"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/domains/repo/rpsync"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/errorx"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/hashx"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// 同步结果消息文案（线上协议约定，终端侧有匹配逻辑，不可随意改动）
const (
	msgAlreadyInSync      = "Already in sync"
	msgConflictDetected   = "Conflict detected - server version is newer"
	msgTxnExistsDifferent = "Transaction already exists with different data"
	msgAlreadyDeleted     = "Already deleted"
	msgDeletedOnServer    = "Record was deleted on server"
	msgStoreFailure       = "Store operation failed"
)

// EventPublisher 同步变更事件发布接口（Redis Pub/Sub 实现）
type EventPublisher interface {
	PublishSyncEvent(ctx context.Context, event *model.SyncEvent) error
}

// SettlementQueue 清算任务投递接口（lmstfy 实现）
type SettlementQueue interface {
	PublishSettlementJob(ctx context.Context, job *model.SettlementJob) error
}

// Service 同步服务
// 对账引擎 + 批量协调器 + 增量拉取；每个实体的对账独立、幂等，
// 彼此之间没有顺序依赖，引擎本身不持有共享状态
type Service struct {
	repo   rpsync.SyncRepository
	events EventPublisher
	jobs   SettlementQueue
	log    logger.Logger
	now    func() time.Time
}

// NewService 创建同步服务实例
// events 与 jobs 可为 nil（例如单测或未接入 Redis/lmstfy 的部署）
func NewService(repo rpsync.SyncRepository, events EventPublisher, jobs SettlementQueue, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		jobs:   jobs,
		log:    log,
		now:    time.Now,
	}
}

// entityOps 对账引擎的实体类型能力集
// 订单与交易的插入/无变更/更新/冲突分支完全一致，差异收敛在这组回调里
type entityOps struct {
	kind       string
	serverID   string
	appendOnly bool
	find       func(ctx context.Context) (*rpsync.RecordMeta, error)
	insert     func(ctx context.Context, serverHash string) error
	update     func(ctx context.Context, serverHash string, prevVersion int) (bool, error)
	tombstone  func(ctx context.Context) error
}

// SyncOrder 对账单个订单
// 任何存储层错误都收敛为失败结果，不向上抛错——批量处理的隔离性依赖这一点
func (s *Service) SyncOrder(ctx context.Context, o *model.SyncableOrder) *model.SyncResult {
	if o.Order == nil {
		return s.failure("", errorx.ErrMissingEntity.Error())
	}

	clientHash := hashx.Sum(o.Order.Canonical())
	result, mutated := s.reconcile(ctx, &o.SyncMeta, clientHash, entityOps{
		kind:       model.SyncEntityOrder,
		serverID:   o.Order.ID,
		appendOnly: false,
		find: func(ctx context.Context) (*rpsync.RecordMeta, error) {
			return s.repo.GetOrderMeta(ctx, o.LocalID)
		},
		insert: func(ctx context.Context, serverHash string) error {
			return s.repo.InsertOrder(ctx, o, serverHash)
		},
		update: func(ctx context.Context, serverHash string, prevVersion int) (bool, error) {
			return s.repo.UpdateOrder(ctx, o, serverHash, prevVersion)
		},
		tombstone: func(ctx context.Context) error {
			return s.repo.MarkOrderDeleted(ctx, o.LocalID)
		},
	})

	if mutated {
		s.publishEvent(ctx, model.SyncEntityOrder, &o.SyncMeta)
	}
	return result
}

// SyncTransaction 对账单笔交易
// 交易为只追加类型：同一 localId 下内容分歧直接判失败，绝不覆盖财务记录
func (s *Service) SyncTransaction(ctx context.Context, t *model.SyncableTransaction) *model.SyncResult {
	if t.Transaction == nil {
		return s.failure("", errorx.ErrMissingEntity.Error())
	}

	clientHash := hashx.Sum(t.Transaction.Canonical())
	result, mutated := s.reconcile(ctx, &t.SyncMeta, clientHash, entityOps{
		kind:       model.SyncEntityTransaction,
		serverID:   t.Transaction.ID,
		appendOnly: true,
		find: func(ctx context.Context) (*rpsync.RecordMeta, error) {
			return s.repo.GetTransactionMeta(ctx, t.LocalID)
		},
		insert: func(ctx context.Context, serverHash string) error {
			return s.repo.InsertTransaction(ctx, t, serverHash)
		},
		tombstone: func(ctx context.Context) error {
			return s.repo.MarkTransactionDeleted(ctx, t.LocalID)
		},
	})

	if mutated {
		s.publishEvent(ctx, model.SyncEntityTransaction, &t.SyncMeta)
		if t.SyncMeta.SyncStatus != model.SyncStatusDeleted {
			s.publishSettlement(ctx, t, result)
		}
	}
	return result
}

// reconcile 单实体对账核心算法，按 localId 原子执行
// 返回结果与存储是否被修改（修改后才需要发布变更事件）
//
//  1. 按 localId 查权威记录
//  2. 不存在 → 插入；并发插入冲突时重读后走对比分支
//  3. 存在且哈希一致 → 无变更，幂等重放
//  4. 版本更新 → client wins，CAS 条件更新
//  5. 其余 → 冲突，server wins，存储不动
func (s *Service) reconcile(ctx context.Context, meta *model.SyncMeta, clientHash string, ops entityOps) (*model.SyncResult, bool) {
	if meta.LocalID == "" {
		return s.failure("", errorx.ErrMissingLocalID.Error()), false
	}
	if meta.DeviceID == "" {
		return s.failure("", errorx.ErrMissingDeviceID.Error()), false
	}

	// 墓碑传播：本地已删除的实体
	if meta.SyncStatus == model.SyncStatusDeleted {
		return s.reconcileDelete(ctx, meta, ops)
	}

	existing, err := ops.find(ctx)
	if err != nil {
		s.log.Errorf(ctx, "lookup %s failed: local_id=%s, error=%v", ops.kind, meta.LocalID, err)
		return s.failure("", msgStoreFailure), false
	}

	if existing == nil {
		err := ops.insert(ctx, clientHash)
		if err == nil {
			s.log.Infof(ctx, "inserted new %s: local_id=%s, version=%d", ops.kind, meta.LocalID, meta.SyncVersion)
			return s.success(ops.serverID, ""), true
		}
		if err != rpsync.ErrDuplicateLocalID {
			s.log.Errorf(ctx, "insert %s failed: local_id=%s, error=%v", ops.kind, meta.LocalID, err)
			return s.failure("", msgStoreFailure), false
		}

		// 撞上并发插入（典型场景：客户端超时重试），重读后按已存在处理
		existing, err = ops.find(ctx)
		if err != nil || existing == nil {
			s.log.Errorf(ctx, "reread %s after duplicate insert failed: local_id=%s, error=%v", ops.kind, meta.LocalID, err)
			return s.failure("", msgStoreFailure), false
		}
	}

	// 已在服务端删除的记录不再接受写入
	if existing.Deleted {
		return s.failure(existing.ServerID, msgDeletedOnServer), false
	}

	// 哈希一致：幂等重放（例如响应丢失后的整批重试），零改动
	if clientHash == existing.ServerHash {
		s.log.Infof(ctx, "%s already in sync: local_id=%s", ops.kind, meta.LocalID)
		return s.success(existing.ServerID, msgAlreadyInSync), false
	}

	// 只追加类型出现内容分歧：硬失败，不进入版本比较
	if ops.appendOnly {
		s.log.Warnf(ctx, "unexpected conflict for %s: local_id=%s", ops.kind, meta.LocalID)
		return s.failure(existing.ServerID, msgTxnExistsDifferent), false
	}

	if meta.SyncVersion > existing.SyncVersion {
		ok, err := ops.update(ctx, clientHash, existing.SyncVersion)
		if err != nil {
			s.log.Errorf(ctx, "update %s failed: local_id=%s, error=%v", ops.kind, meta.LocalID, err)
			return s.failure(existing.ServerID, msgStoreFailure), false
		}
		if !ok {
			// CAS 未命中：读取与写入之间另一个请求已提交更新的版本
			s.log.Warnf(ctx, "lost update race for %s: local_id=%s", ops.kind, meta.LocalID)
			return s.conflict(existing.ServerID, clientHash, existing.ServerHash), false
		}
		s.log.Infof(ctx, "updated %s with client version: local_id=%s, version=%d", ops.kind, meta.LocalID, meta.SyncVersion)
		return s.success(existing.ServerID, ""), true
	}

	// 客户端版本不高于服务端且内容不同：冲突，server wins
	s.log.Warnf(ctx, "conflict detected for %s: local_id=%s, client_version=%d, server_version=%d",
		ops.kind, meta.LocalID, meta.SyncVersion, existing.SyncVersion)
	return s.conflict(existing.ServerID, clientHash, existing.ServerHash), false
}

// reconcileDelete 墓碑分支：软删除权威记录，待增量拉取传播给其他设备
func (s *Service) reconcileDelete(ctx context.Context, meta *model.SyncMeta, ops entityOps) (*model.SyncResult, bool) {
	existing, err := ops.find(ctx)
	if err != nil {
		s.log.Errorf(ctx, "lookup %s for delete failed: local_id=%s, error=%v", ops.kind, meta.LocalID, err)
		return s.failure("", msgStoreFailure), false
	}
	if existing == nil || existing.Deleted {
		return s.success("", msgAlreadyDeleted), false
	}
	if err := ops.tombstone(ctx); err != nil {
		s.log.Errorf(ctx, "tombstone %s failed: local_id=%s, error=%v", ops.kind, meta.LocalID, err)
		return s.failure(existing.ServerID, msgStoreFailure), false
	}
	s.log.Infof(ctx, "tombstoned %s: local_id=%s", ops.kind, meta.LocalID)
	return s.success(existing.ServerID, ""), true
}

// publishEvent 发布同步变更事件，失败只告警不影响同步结果
func (s *Service) publishEvent(ctx context.Context, kind string, meta *model.SyncMeta) {
	if s.events == nil {
		return
	}
	action := model.SyncActionUpsert
	if meta.SyncStatus == model.SyncStatusDeleted {
		action = model.SyncActionDelete
	}
	event := &model.SyncEvent{
		EntityType: kind,
		Action:     action,
		LocalID:    meta.LocalID,
		DeviceID:   meta.DeviceID,
		Timestamp:  s.now().UnixMilli(),
	}
	if err := s.events.PublishSyncEvent(ctx, event); err != nil {
		s.log.Warnf(ctx, "publish sync event failed: local_id=%s, error=%v", meta.LocalID, err)
	}
}

// publishSettlement 投递清算任务，失败只告警不影响同步结果
func (s *Service) publishSettlement(ctx context.Context, t *model.SyncableTransaction, result *model.SyncResult) {
	if s.jobs == nil {
		return
	}
	job := &model.SettlementJob{
		LocalID:       t.LocalID,
		TransactionID: t.Transaction.ID,
		DeviceID:      t.DeviceID,
		Type:          t.Transaction.Type,
		Amount:        t.Transaction.Amount,
		SyncedAt:      result.SyncedAt,
	}
	if err := s.jobs.PublishSettlementJob(ctx, job); err != nil {
		s.log.Warnf(ctx, "publish settlement job failed: local_id=%s, error=%v", t.LocalID, err)
	}
}

// success 构造成功结果
func (s *Service) success(serverID, message string) *model.SyncResult {
	return &model.SyncResult{
		Success:  true,
		ServerID: serverID,
		SyncedAt: s.now().UnixMilli(),
		Message:  message,
	}
}

// failure 构造失败结果
func (s *Service) failure(serverID, message string) *model.SyncResult {
	return &model.SyncResult{
		Success:  false,
		ServerID: serverID,
		SyncedAt: s.now().UnixMilli(),
		Message:  message,
	}
}

// conflict 构造冲突结果，当前策略固定为 server wins
func (s *Service) conflict(serverID, clientHash, serverHash string) *model.SyncResult {
	return &model.SyncResult{
		Success:  false,
		ServerID: serverID,
		SyncedAt: s.now().UnixMilli(),
		Message:  msgConflictDetected,
		Conflicts: []model.ConflictInfo{
			{
				Field:       "entity",
				LocalValue:  clientHash,
				ServerValue: serverHash,
				Resolution:  model.ResolutionServerWins,
			},
		},
	}
}
