package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/infra/mq/lmstfy"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// fakeSource 一次性消息源：依次吐出预置消息，耗尽后返回空
type fakeSource struct {
	mu       sync.Mutex
	messages []*lmstfy.Message
	acked    []string
}

func (s *fakeSource) Consume(_ string, _, _ time.Duration) (*lmstfy.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil, nil
	}
	msg := s.messages[0]
	s.messages = s.messages[1:]
	return msg, nil
}

func (s *fakeSource) Ack(_ string, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, jobID)
	return nil
}

func (s *fakeSource) ackedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}

// fakeStore 捕获清算写入
type fakeStore struct {
	mu      sync.Mutex
	applied []appliedRow
	err     error
}

type appliedRow struct {
	deviceID   string
	settleDate string
	amount     float64
}

func (s *fakeStore) Apply(_ context.Context, deviceID, settleDate string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.applied = append(s.applied, appliedRow{deviceID, settleDate, amount})
	return nil
}

func (s *fakeStore) rows() []appliedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]appliedRow(nil), s.applied...)
}

// fakeNotifier 捕获完成通知
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Publish(_ context.Context, _ string, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func settlementMessage(t *testing.T, id string, job *model.SettlementJob) *lmstfy.Message {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return &lmstfy.Message{ID: id, Queue: "settlement_jobs", Data: payload}
}

// runWorker 跑一轮消费循环直到消息耗尽
func runWorker(t *testing.T, w *SettlementWorker, source *fakeSource, expectAcks int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.After(4 * time.Second)
	for len(source.ackedIDs()) < expectAcks {
		select {
		case <-deadline:
			t.Fatalf("worker did not ack %d messages in time", expectAcks)
		case <-time.After(10 * time.Millisecond):
		}
	}
	w.Shutdown()
	require.NoError(t, <-done)
}

func TestSettlementWorkerAppliesJobs(t *testing.T) {
	source := &fakeSource{
		messages: []*lmstfy.Message{
			settlementMessage(t, "job-1", &model.SettlementJob{
				LocalID: "txn-001", DeviceID: "device-a",
				Type: model.TransactionTypeSale, Amount: 9.90,
				SyncedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).UnixMilli(),
			}),
			settlementMessage(t, "job-2", &model.SettlementJob{
				LocalID: "txn-002", DeviceID: "device-a",
				Type: model.TransactionTypeRefund, Amount: 3.00,
				SyncedAt: time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC).UnixMilli(),
			}),
		},
	}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	w := NewSettlementWorker(source, store, notifier, "settlement_jobs", "settlement_complete", logger.NewNopLogger())

	runWorker(t, w, source, 2)

	rows := store.rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "device-a", rows[0].deviceID)
	assert.Equal(t, 9.90, rows[0].amount)

	// 退款计为负数
	assert.Equal(t, -3.00, rows[1].amount)

	assert.Equal(t, []string{"job-1", "job-2"}, source.ackedIDs())
	assert.Equal(t, 2, notifier.count())
}

func TestSettlementWorkerSkipsAckOnStoreFailure(t *testing.T) {
	source := &fakeSource{
		messages: []*lmstfy.Message{
			settlementMessage(t, "job-1", &model.SettlementJob{
				LocalID: "txn-001", DeviceID: "device-a",
				Type: model.TransactionTypeSale, Amount: 9.90,
				SyncedAt: time.Now().UnixMilli(),
			}),
		},
	}
	store := &fakeStore{err: errors.New("deadlock")}
	w := NewSettlementWorker(source, store, nil, "settlement_jobs", "", logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// 处理失败的消息不 ACK，留给 lmstfy 按 TTR 重投
	time.Sleep(100 * time.Millisecond)
	w.Shutdown()
	cancel()
	<-done

	assert.Empty(t, source.ackedIDs())
	assert.Empty(t, store.rows())
}

func TestSettlementWorkerSkipsAckOnBadPayload(t *testing.T) {
	source := &fakeSource{
		messages: []*lmstfy.Message{
			{ID: "job-bad", Queue: "settlement_jobs", Data: []byte("{not json")},
		},
	}
	store := &fakeStore{}
	w := NewSettlementWorker(source, store, nil, "settlement_jobs", "", logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	w.Shutdown()
	cancel()
	<-done

	assert.Empty(t, source.ackedIDs())
	assert.Empty(t, store.rows())
}

func TestSettlementAmountDirection(t *testing.T) {
	assert.Equal(t, 10.0, settlementAmount(&model.SettlementJob{Type: model.TransactionTypeSale, Amount: 10}))
	assert.Equal(t, -10.0, settlementAmount(&model.SettlementJob{Type: model.TransactionTypeRefund, Amount: 10}))
	assert.Equal(t, -10.0, settlementAmount(&model.SettlementJob{Type: model.TransactionTypeVoid, Amount: 10}))
}

func TestSettlementDateFromSyncedAt(t *testing.T) {
	source := &fakeSource{
		messages: []*lmstfy.Message{
			settlementMessage(t, "job-1", &model.SettlementJob{
				LocalID: "txn-001", DeviceID: "device-a",
				Type: model.TransactionTypeSale, Amount: 1.00,
				SyncedAt: time.Date(2024, 3, 5, 23, 30, 0, 0, time.Local).UnixMilli(),
			}),
		},
	}
	store := &fakeStore{}
	w := NewSettlementWorker(source, store, nil, "settlement_jobs", "", logger.NewNopLogger())

	runWorker(t, w, source, 1)

	rows := store.rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-05", rows[0].settleDate)
}
