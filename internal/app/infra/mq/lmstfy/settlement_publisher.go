package lmstfy

import (
	"context"
	"encoding/json"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// 清算任务消息参数
const (
	settlementJobTTL = 3600 // 秒
)

// SettlementPublisher 清算任务投递器
// 实现 svsync.SettlementQueue，apiserver 每接受一笔新交易投递一条
type SettlementPublisher struct {
	client *Client
	queue  string
}

// NewSettlementPublisher 创建清算任务投递器
func NewSettlementPublisher(client *Client, queue string) *SettlementPublisher {
	return &SettlementPublisher{
		client: client,
		queue:  queue,
	}
}

// PublishSettlementJob 投递清算任务
func (p *SettlementPublisher) PublishSettlementJob(_ context.Context, job *model.SettlementJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.client.Publish(p.queue, payload, settlementJobTTL, 0)
}
