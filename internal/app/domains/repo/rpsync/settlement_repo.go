package rpsync

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kachmul2004/auraflowpos-sub004/common/entity"
)

// SettlementRepository 清算汇总存储接口
type SettlementRepository interface {
	// Apply 累计一笔交易到 设备+营业日 汇总行（不存在则创建）
	Apply(ctx context.Context, deviceID, settleDate string, amount float64) error

	// Get 查询指定设备与营业日的汇总行，不存在返回 nil
	Get(ctx context.Context, deviceID, settleDate string) (*entity.DeviceSettlement, error)
}

// SettlementRepositoryImpl 清算汇总存储实现（MySQL）
type SettlementRepositoryImpl struct {
	db *gorm.DB
}

// NewSettlementRepository 创建清算汇总存储实例
func NewSettlementRepository(db *gorm.DB) SettlementRepository {
	return &SettlementRepositoryImpl{db: db}
}

// Apply 以 upsert 方式累计金额与笔数
// uk_device_date 唯一索引保证同一设备同一营业日只有一行
func (r *SettlementRepositoryImpl) Apply(ctx context.Context, deviceID, settleDate string, amount float64) error {
	now := time.Now()
	row := &entity.DeviceSettlement{
		DeviceID:    deviceID,
		SettleDate:  settleDate,
		TotalAmount: amount,
		TxnCount:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}, {Name: "settle_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_amount": gorm.Expr("total_amount + ?", amount),
			"txn_count":    gorm.Expr("txn_count + 1"),
			"updated_at":   now,
		}),
	}).Create(row).Error
}

// Get 查询汇总行
func (r *SettlementRepositoryImpl) Get(ctx context.Context, deviceID, settleDate string) (*entity.DeviceSettlement, error) {
	var row entity.DeviceSettlement
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND settle_date = ?", deviceID, settleDate).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
