package sync

import (
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/domains/services/svsync"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// SyncHandler 同步 HTTP 处理器
type SyncHandler struct {
	syncService *svsync.Service
	log         logger.Logger
}

// NewSyncHandler 创建同步处理器实例
func NewSyncHandler(syncService *svsync.Service, log logger.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		log:         log,
	}
}
