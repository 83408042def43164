package rpsync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kachmul2004/auraflowpos-sub004/common/entity"
	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// SyncRepositoryImpl 同步存储实现（MySQL）
type SyncRepositoryImpl struct {
	db *gorm.DB
}

// NewSyncRepository 创建同步存储实例
// gorm 需开启 TranslateError，唯一约束冲突才能翻译为 gorm.ErrDuplicatedKey
func NewSyncRepository(db *gorm.DB) SyncRepository {
	return &SyncRepositoryImpl{db: db}
}

// GetOrderMeta 按 localId 查询订单元数据
func (r *SyncRepositoryImpl) GetOrderMeta(ctx context.Context, localID string) (*RecordMeta, error) {
	var po entity.SyncOrder
	err := r.db.WithContext(ctx).
		Select("id", "local_id", "device_id", "sync_version", "server_hash", "deleted").
		Where("local_id = ?", localID).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &RecordMeta{
		ServerID:    po.ID,
		LocalID:     po.LocalID,
		DeviceID:    po.DeviceID,
		SyncVersion: po.SyncVersion,
		ServerHash:  po.ServerHash,
		Deleted:     po.Deleted,
	}, nil
}

// InsertOrder 插入新订单记录
func (r *SyncRepositoryImpl) InsertOrder(ctx context.Context, o *model.SyncableOrder, serverHash string) error {
	payload, err := json.Marshal(o.Order)
	if err != nil {
		return err
	}

	now := time.Now()
	po := &entity.SyncOrder{
		ID:          o.Order.ID,
		LocalID:     o.LocalID,
		OrderNumber: o.Order.OrderNumber,
		Payload:     payload,
		DeviceID:    o.DeviceID,
		SyncVersion: o.SyncVersion,
		ServerHash:  serverHash,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateLocalID
		}
		return err
	}
	return nil
}

// UpdateOrder 条件更新订单，CAS 条件为存储版本未变
func (r *SyncRepositoryImpl) UpdateOrder(ctx context.Context, o *model.SyncableOrder, serverHash string, prevVersion int) (bool, error) {
	payload, err := json.Marshal(o.Order)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&entity.SyncOrder{}).
		Where("local_id = ? AND sync_version = ? AND deleted = ?", o.LocalID, prevVersion, false).
		Updates(map[string]interface{}{
			"payload":      payload,
			"order_number": o.Order.OrderNumber,
			"sync_version": o.SyncVersion,
			"server_hash":  serverHash,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkOrderDeleted 订单打墓碑标记
func (r *SyncRepositoryImpl) MarkOrderDeleted(ctx context.Context, localID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.SyncOrder{}).
		Where("local_id = ?", localID).
		Updates(map[string]interface{}{
			"deleted":    true,
			"updated_at": time.Now(),
		}).Error
}

// ListOrders 查询其他设备的订单
func (r *SyncRepositoryImpl) ListOrders(ctx context.Context, excludeDeviceID string, since *time.Time) ([]*model.SyncableOrder, error) {
	var pos []entity.SyncOrder
	query := r.db.WithContext(ctx).
		Where("device_id <> ? AND deleted = ?", excludeDeviceID, false)
	if since != nil {
		query = query.Where("updated_at > ?", *since)
	}
	if err := query.Order("updated_at ASC").Find(&pos).Error; err != nil {
		return nil, err
	}

	orders := make([]*model.SyncableOrder, 0, len(pos))
	for i := range pos {
		o, err := toSyncableOrder(&pos[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ListDeletedOrderIDs 查询其他设备已删除订单的 localId
func (r *SyncRepositoryImpl) ListDeletedOrderIDs(ctx context.Context, excludeDeviceID string, since *time.Time) ([]string, error) {
	return r.listDeletedIDs(ctx, &entity.SyncOrder{}, excludeDeviceID, since)
}

// GetTransactionMeta 按 localId 查询交易元数据
func (r *SyncRepositoryImpl) GetTransactionMeta(ctx context.Context, localID string) (*RecordMeta, error) {
	var po entity.SyncTransaction
	err := r.db.WithContext(ctx).
		Select("id", "local_id", "device_id", "sync_version", "server_hash", "deleted").
		Where("local_id = ?", localID).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &RecordMeta{
		ServerID:    po.ID,
		LocalID:     po.LocalID,
		DeviceID:    po.DeviceID,
		SyncVersion: po.SyncVersion,
		ServerHash:  po.ServerHash,
		Deleted:     po.Deleted,
	}, nil
}

// InsertTransaction 插入新交易记录
func (r *SyncRepositoryImpl) InsertTransaction(ctx context.Context, t *model.SyncableTransaction, serverHash string) error {
	payload, err := json.Marshal(t.Transaction)
	if err != nil {
		return err
	}

	now := time.Now()
	po := &entity.SyncTransaction{
		ID:              t.Transaction.ID,
		LocalID:         t.LocalID,
		ReferenceNumber: t.Transaction.ReferenceNumber,
		OrderID:         t.Transaction.OrderID,
		Payload:         payload,
		DeviceID:        t.DeviceID,
		SyncVersion:     t.SyncVersion,
		ServerHash:      serverHash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateLocalID
		}
		return err
	}
	return nil
}

// MarkTransactionDeleted 交易打墓碑标记
func (r *SyncRepositoryImpl) MarkTransactionDeleted(ctx context.Context, localID string) error {
	return r.db.WithContext(ctx).
		Model(&entity.SyncTransaction{}).
		Where("local_id = ?", localID).
		Updates(map[string]interface{}{
			"deleted":    true,
			"updated_at": time.Now(),
		}).Error
}

// ListTransactions 查询其他设备的交易
func (r *SyncRepositoryImpl) ListTransactions(ctx context.Context, excludeDeviceID string, since *time.Time) ([]*model.SyncableTransaction, error) {
	var pos []entity.SyncTransaction
	query := r.db.WithContext(ctx).
		Where("device_id <> ? AND deleted = ?", excludeDeviceID, false)
	if since != nil {
		query = query.Where("updated_at > ?", *since)
	}
	if err := query.Order("updated_at ASC").Find(&pos).Error; err != nil {
		return nil, err
	}

	txns := make([]*model.SyncableTransaction, 0, len(pos))
	for i := range pos {
		t, err := toSyncableTransaction(&pos[i])
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, nil
}

// ListDeletedTransactionIDs 查询其他设备已删除交易的 localId
func (r *SyncRepositoryImpl) ListDeletedTransactionIDs(ctx context.Context, excludeDeviceID string, since *time.Time) ([]string, error) {
	return r.listDeletedIDs(ctx, &entity.SyncTransaction{}, excludeDeviceID, since)
}

// listDeletedIDs 墓碑 localId 查询（订单/交易共用）
func (r *SyncRepositoryImpl) listDeletedIDs(ctx context.Context, table interface{}, excludeDeviceID string, since *time.Time) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).
		Model(table).
		Where("device_id <> ? AND deleted = ?", excludeDeviceID, true)
	if since != nil {
		query = query.Where("updated_at > ?", *since)
	}
	if err := query.Pluck("local_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// toSyncableOrder 持久化对象转同步信封
func toSyncableOrder(po *entity.SyncOrder) (*model.SyncableOrder, error) {
	var order model.Order
	if err := json.Unmarshal(po.Payload, &order); err != nil {
		return nil, err
	}
	lastSynced := po.UpdatedAt.UnixMilli()
	return &model.SyncableOrder{
		Order: &order,
		SyncMeta: model.SyncMeta{
			LocalID:      po.LocalID,
			SyncStatus:   model.SyncStatusSynced,
			LastSyncedAt: &lastSynced,
			SyncVersion:  po.SyncVersion,
			DeviceID:     po.DeviceID,
			ServerHash:   po.ServerHash,
		},
	}, nil
}

// toSyncableTransaction 持久化对象转同步信封
func toSyncableTransaction(po *entity.SyncTransaction) (*model.SyncableTransaction, error) {
	var txn model.Transaction
	if err := json.Unmarshal(po.Payload, &txn); err != nil {
		return nil, err
	}
	lastSynced := po.UpdatedAt.UnixMilli()
	return &model.SyncableTransaction{
		Transaction: &txn,
		SyncMeta: model.SyncMeta{
			LocalID:      po.LocalID,
			SyncStatus:   model.SyncStatusSynced,
			LastSyncedAt: &lastSynced,
			SyncVersion:  po.SyncVersion,
			DeviceID:     po.DeviceID,
			ServerHash:   po.ServerHash,
		},
	}, nil
}
