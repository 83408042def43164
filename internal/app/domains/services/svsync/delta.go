package svsync

import (
	"context"
	"fmt"
	"time"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// ServerUpdates 增量拉取
// 返回权威归属不是请求设备的全部变更（自排除是硬性约定：设备永远
// 看不到自己的写入被回传）；since 非空时按 updated_at 过滤，实现真正
// 的增量同步；墓碑以 localId 列表下发，终端按 localId 移除本地副本
func (s *Service) ServerUpdates(ctx context.Context, deviceID string, since *time.Time) (*model.ServerUpdates, error) {
	orders, err := s.repo.ListOrders(ctx, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("list orders failed: %w", err)
	}

	transactions, err := s.repo.ListTransactions(ctx, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("list transactions failed: %w", err)
	}

	deletedOrderIDs, err := s.repo.ListDeletedOrderIDs(ctx, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("list deleted order ids failed: %w", err)
	}

	deletedTxnIDs, err := s.repo.ListDeletedTransactionIDs(ctx, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("list deleted transaction ids failed: %w", err)
	}

	if orders == nil {
		orders = []*model.SyncableOrder{}
	}
	if transactions == nil {
		transactions = []*model.SyncableTransaction{}
	}
	if deletedOrderIDs == nil {
		deletedOrderIDs = []string{}
	}
	if deletedTxnIDs == nil {
		deletedTxnIDs = []string{}
	}

	return &model.ServerUpdates{
		Orders:                orders,
		Transactions:          transactions,
		DeletedOrderIDs:       deletedOrderIDs,
		DeletedTransactionIDs: deletedTxnIDs,
	}, nil
}
