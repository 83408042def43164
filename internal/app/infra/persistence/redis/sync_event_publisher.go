package redis

import (
	"context"
	"encoding/json"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// SyncEventPublisher 同步变更事件发布器
// 实现 svsync.EventPublisher，事件以 JSON 发布到固定频道
type SyncEventPublisher struct {
	client  *PubSubClient
	channel string
}

// NewSyncEventPublisher 创建事件发布器
func NewSyncEventPublisher(client *PubSubClient, channel string) *SyncEventPublisher {
	return &SyncEventPublisher{
		client:  client,
		channel: channel,
	}
}

// PublishSyncEvent 发布同步变更事件
func (p *SyncEventPublisher) PublishSyncEvent(ctx context.Context, event *model.SyncEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, string(payload))
}
