package sync

import (
	"github.com/gin-gonic/gin"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/ginx"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// Batch 批量同步接口
// POST /api/sync/batch
func (h *SyncHandler) Batch(c *gin.Context) {
	var req model.BatchSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BindError(c, err)
		return
	}

	ctx := logger.WithDeviceID(c.Request.Context(), req.DeviceID)

	resp, err := h.syncService.SyncBatch(ctx, &req)
	if err != nil {
		h.log.Errorf(ctx, "batch sync failed: %v", err)
		ginx.InternalError(c, model.ErrCodeSyncFailed, "Failed to sync data")
		return
	}

	ginx.OK(c, resp)
}
