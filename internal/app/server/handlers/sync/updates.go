package sync

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/ginx"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// Updates 增量拉取接口
// GET /api/sync/updates?deviceId={deviceId}&since={timestamp}
func (h *SyncHandler) Updates(c *gin.Context) {
	deviceID := c.Query("deviceId")
	if deviceID == "" {
		ginx.BadRequest(c, model.ErrCodeMissingDeviceID, "Device ID is required")
		return
	}

	var since *time.Time
	if sinceStr := c.Query("since"); sinceStr != "" {
		millis, err := strconv.ParseInt(sinceStr, 10, 64)
		if err != nil {
			ginx.BadRequest(c, model.ErrCodeInvalidRequest, "since must be an epoch-millis timestamp")
			return
		}
		t := time.UnixMilli(millis)
		since = &t
	}

	ctx := logger.WithDeviceID(c.Request.Context(), deviceID)

	updates, err := h.syncService.ServerUpdates(ctx, deviceID, since)
	if err != nil {
		h.log.Errorf(ctx, "fetch server updates failed: %v", err)
		ginx.InternalError(c, model.ErrCodeFetchFailed, "Failed to fetch server updates")
		return
	}

	ginx.OK(c, updates)
}
