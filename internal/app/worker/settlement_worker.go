package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/atomic"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/infra/mq/lmstfy"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// 消费参数
const (
	consumeTimeout = 3 * time.Second
	consumeTTR     = 30 * time.Second
)

// MessageSource 消息来源接口（lmstfy 实现）
type MessageSource interface {
	Consume(queue string, timeout, ttr time.Duration) (*lmstfy.Message, error)
	Ack(queue string, jobID string) error
}

// SettlementStore 清算汇总写入接口（rpsync.SettlementRepository 实现）
type SettlementStore interface {
	Apply(ctx context.Context, deviceID, settleDate string, amount float64) error
}

// Notifier 清算完成通知接口（Redis Pub/Sub 实现）
type Notifier interface {
	Publish(ctx context.Context, channel string, message string) error
}

// SettlementWorker 清算 Worker
// 消费 apiserver 投递的清算任务，按 设备+营业日 维度累计汇总，
// 处理成功后 ACK 并发布完成通知
type SettlementWorker struct {
	source        MessageSource
	store         SettlementStore
	notifier      Notifier
	queue         string
	notifyChannel string
	closing       *atomic.Bool
	log           logger.Logger
}

// NewSettlementWorker 创建清算 Worker
// notifier 可为 nil（未接入 Redis 的部署）
func NewSettlementWorker(source MessageSource, store SettlementStore, notifier Notifier, queue, notifyChannel string, log logger.Logger) *SettlementWorker {
	return &SettlementWorker{
		source:        source,
		store:         store,
		notifier:      notifier,
		queue:         queue,
		notifyChannel: notifyChannel,
		closing:       atomic.NewBool(false),
		log:           log,
	}
}

// Run 消费循环：consume → process → ack
// 单条消息处理失败不 ACK，交由 lmstfy 按 TTR 重新投递
func (w *SettlementWorker) Run(ctx context.Context) error {
	w.log.Infof(ctx, "settlement worker started: queue=%s", w.queue)

	for {
		if w.closing.Load() {
			w.log.Infof(ctx, "settlement worker stopped")
			return nil
		}
		select {
		case <-ctx.Done():
			w.log.Infof(ctx, "settlement worker context cancelled")
			return ctx.Err()
		default:
		}

		msg, err := w.source.Consume(w.queue, consumeTimeout, consumeTTR)
		if err != nil {
			w.log.Errorf(ctx, "consume settlement job failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		if err := w.process(ctx, msg); err != nil {
			w.log.Errorf(ctx, "process settlement job failed: job_id=%s, error=%v", msg.ID, err)
			continue
		}

		if err := w.source.Ack(w.queue, msg.ID); err != nil {
			w.log.Errorf(ctx, "ack settlement job failed: job_id=%s, error=%v", msg.ID, err)
		}
	}
}

// Shutdown 通知消费循环退出
func (w *SettlementWorker) Shutdown() {
	w.closing.Store(true)
}

// process 处理单条清算任务
func (w *SettlementWorker) process(ctx context.Context, msg *lmstfy.Message) error {
	var job model.SettlementJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return err
	}

	settleDate := time.UnixMilli(job.SyncedAt).Format("2006-01-02")
	amount := settlementAmount(&job)

	if err := w.store.Apply(ctx, job.DeviceID, settleDate, amount); err != nil {
		return err
	}

	w.log.Infof(ctx, "settlement applied: device_id=%s, date=%s, amount=%.2f, txn=%s",
		job.DeviceID, settleDate, amount, job.LocalID)

	if w.notifier != nil {
		payload, _ := json.Marshal(job)
		if err := w.notifier.Publish(ctx, w.notifyChannel, string(payload)); err != nil {
			w.log.Warnf(ctx, "publish settlement complete failed: %v", err)
		}
	}

	return nil
}

// settlementAmount 清算金额方向：退款与作废计为负数
func settlementAmount(job *model.SettlementJob) float64 {
	switch job.Type {
	case model.TransactionTypeRefund, model.TransactionTypeVoid:
		return -job.Amount
	}
	return job.Amount
}
