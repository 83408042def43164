package svsync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// SyncBatch 批量同步协调器
// 将批次内的订单与交易逐个交给对账引擎，单个实体的失败或冲突只隔离
// 在对应结果槽位里，不会中断其余实体；处理完后附带增量数据与下一个
// 同步游标。只有外层边界错误（增量查询失败等）才使整批调用失败
func (s *Service) SyncBatch(ctx context.Context, req *model.BatchSyncRequest) (*model.BatchSyncResponse, error) {
	s.log.Infof(ctx, "batch sync from device %s: %d orders, %d transactions",
		req.DeviceID, len(req.Orders), len(req.Transactions))

	syncedOrders := make([]*model.SyncResult, 0, len(req.Orders))
	for _, order := range req.Orders {
		syncedOrders = append(syncedOrders, s.SyncOrder(ctx, order))
	}

	syncedTransactions := make([]*model.SyncResult, 0, len(req.Transactions))
	for _, txn := range req.Transactions {
		syncedTransactions = append(syncedTransactions, s.SyncTransaction(ctx, txn))
	}

	var since *time.Time
	if req.LastSyncTimestamp != nil {
		t := time.UnixMilli(*req.LastSyncTimestamp)
		since = &t
	}

	updates, err := s.ServerUpdates(ctx, req.DeviceID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch server updates failed: %w", err)
	}

	return &model.BatchSyncResponse{
		Success:            true,
		SyncedOrders:       syncedOrders,
		SyncedTransactions: syncedTransactions,
		ServerUpdates:      updates,
		NextSyncToken:      strconv.FormatInt(s.now().UnixMilli(), 10),
	}, nil
}
