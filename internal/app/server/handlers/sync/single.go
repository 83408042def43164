package sync

import (
	"github.com/gin-gonic/gin"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/ginx"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// Order 单个订单同步接口（批量接口的单体变种，走同一套对账契约）
// POST /api/sync/order
func (h *SyncHandler) Order(c *gin.Context) {
	var syncableOrder model.SyncableOrder
	if err := c.ShouldBindJSON(&syncableOrder); err != nil {
		ginx.BindError(c, err)
		return
	}

	ctx := logger.WithDeviceID(c.Request.Context(), syncableOrder.DeviceID)
	h.log.Infof(ctx, "syncing order: local_id=%s", syncableOrder.LocalID)

	ginx.OK(c, h.syncService.SyncOrder(ctx, &syncableOrder))
}

// Transaction 单笔交易同步接口
// POST /api/sync/transaction
func (h *SyncHandler) Transaction(c *gin.Context) {
	var syncableTxn model.SyncableTransaction
	if err := c.ShouldBindJSON(&syncableTxn); err != nil {
		ginx.BindError(c, err)
		return
	}

	ctx := logger.WithDeviceID(c.Request.Context(), syncableTxn.DeviceID)
	h.log.Infof(ctx, "syncing transaction: local_id=%s", syncableTxn.LocalID)

	ginx.OK(c, h.syncService.SyncTransaction(ctx, &syncableTxn))
}
