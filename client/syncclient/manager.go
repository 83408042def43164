package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/idgen"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

// 请求参数
const (
	batchSyncPath      = "/api/sync/batch"
	defaultHTTPTimeout = 30 * time.Second
)

// ErrSyncInProgress 已有同步在进行中
var ErrSyncInProgress = errors.New("sync already in progress")

// Manager 终端同步管理器
// 负责本地信封的落盘、批量提交、服务端确认回放与增量合并。
// 所有写路径串行化，SyncWithServer 同一时刻只允许一个在跑
type Manager struct {
	httpClient *http.Client
	storage    LocalStorage
	baseURL    string
	deviceID   string
	log        logger.Logger

	mu      sync.Mutex
	syncing *atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewManager 创建同步管理器
// 设备 ID 首次生成后持久化，之后终生不变
func NewManager(baseURL string, storage LocalStorage, log logger.Logger) *Manager {
	deviceID, ok := storage.Get(keyDeviceID)
	if !ok || deviceID == "" {
		deviceID = idgen.NewDeviceID()
		storage.Set(keyDeviceID, deviceID)
	}

	return &Manager{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		storage:    storage,
		baseURL:    baseURL,
		deviceID:   deviceID,
		log:        log,
		syncing:    atomic.NewBool(false),
	}
}

// DeviceID 返回本设备 ID
func (m *Manager) DeviceID() string {
	return m.deviceID
}

// SaveOrderForSync 保存订单并标记待同步
// 已存在的订单走 MODIFIED 路径，版本号 +1；新订单创建 PENDING 信封
func (m *Manager) SaveOrderForSync(order *model.Order) (*model.SyncableOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := loadOrders(m.storage)
	for _, env := range list {
		if env.LocalID == order.ID {
			if err := env.MarkAsModified(); err != nil {
				return nil, err
			}
			env.Order = order
			saveOrders(m.storage, list)
			return env, nil
		}
	}

	env := model.NewSyncableOrder(order, m.deviceID)
	list = append(list, env)
	saveOrders(m.storage, list)
	return env, nil
}

// SaveTransactionForSync 保存交易并标记待同步
func (m *Manager) SaveTransactionForSync(txn *model.Transaction) (*model.SyncableTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := loadTransactions(m.storage)
	for _, env := range list {
		if env.LocalID == txn.ID {
			if err := env.MarkAsModified(); err != nil {
				return nil, err
			}
			env.Transaction = txn
			saveTransactions(m.storage, list)
			return env, nil
		}
	}

	env := model.NewSyncableTransaction(txn, m.deviceID)
	list = append(list, env)
	saveTransactions(m.storage, list)
	return env, nil
}

// DeleteOrder 墓碑删除本地订单，删除意图随下次同步传播到服务端
func (m *Manager) DeleteOrder(localID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := loadOrders(m.storage)
	for _, env := range list {
		if env.LocalID == localID {
			if err := env.MarkAsDeleted(); err != nil {
				return err
			}
			saveOrders(m.storage, list)
			return nil
		}
	}
	return fmt.Errorf("order not found: %s", localID)
}

// RecoverInFlight 启动恢复：进程崩溃遗留的 SYNCING 信封回退到 FAILED
// 重新纳入下一轮同步，依赖服务端幂等保证重放安全
func (m *Manager) RecoverInFlight() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markSyncingAsFailedLocked()
}

// SyncWithServer 与服务端执行一轮批量同步
func (m *Manager) SyncWithServer(ctx context.Context) (*model.BatchSyncResponse, error) {
	if !m.syncing.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer m.syncing.Store(false)

	m.mu.Lock()
	orders := loadOrders(m.storage)
	txns := loadTransactions(m.storage)

	pendingOrders := make([]*model.SyncableOrder, 0)
	for _, env := range orders {
		if env.NeedsSync() {
			if err := env.MarkAsSyncing(); err != nil {
				continue
			}
			pendingOrders = append(pendingOrders, env)
		} else if env.SyncStatus == model.SyncStatusDeleted {
			pendingOrders = append(pendingOrders, env)
		}
	}
	pendingTxns := make([]*model.SyncableTransaction, 0)
	for _, env := range txns {
		if env.NeedsSync() {
			if err := env.MarkAsSyncing(); err != nil {
				continue
			}
			pendingTxns = append(pendingTxns, env)
		} else if env.SyncStatus == model.SyncStatusDeleted {
			pendingTxns = append(pendingTxns, env)
		}
	}
	saveOrders(m.storage, orders)
	saveTransactions(m.storage, txns)

	req := &model.BatchSyncRequest{
		DeviceID:          m.deviceID,
		Orders:            pendingOrders,
		Transactions:      pendingTxns,
		LastSyncTimestamp: m.lastSyncTimestamp(),
	}
	m.mu.Unlock()

	resp, err := m.postBatch(ctx, req)
	if err != nil {
		m.log.Errorf(ctx, "batch sync request failed: %v", err)
		m.mu.Lock()
		m.markSyncingAsFailedLocked()
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyResponseLocked(ctx, resp, pendingOrders, pendingTxns)

	m.log.Infof(ctx, "sync completed: orders=%d, transactions=%d", len(pendingOrders), len(pendingTxns))
	return resp, nil
}

// StartBackgroundSync 启动后台定时同步
func (m *Manager) StartBackgroundSync(interval time.Duration) {
	m.mu.Lock()
	if m.stopCh != nil {
		m.mu.Unlock()
		return
	}
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if _, err := m.SyncWithServer(context.Background()); err != nil && !errors.Is(err, ErrSyncInProgress) {
					m.log.Warnf(context.Background(), "background sync failed: %v", err)
				}
			}
		}
	}()
}

// StopBackgroundSync 停止后台同步并等待退出
func (m *Manager) StopBackgroundSync() {
	m.mu.Lock()
	if m.stopCh == nil {
		m.mu.Unlock()
		return
	}
	close(m.stopCh)
	m.stopCh = nil
	m.mu.Unlock()
	m.wg.Wait()
}

// SyncStats 本地同步状态统计
type SyncStats struct {
	Pending           int    `json:"pending"`
	Syncing           int    `json:"syncing"`
	Synced            int    `json:"synced"`
	Failed            int    `json:"failed"`
	Modified          int    `json:"modified"`
	Deleted           int    `json:"deleted"`
	LastSyncTimestamp *int64 `json:"lastSyncTimestamp,omitempty"`
}

// Stats 统计本地各状态信封数量
func (m *Manager) Stats() *SyncStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &SyncStats{LastSyncTimestamp: m.lastSyncTimestamp()}
	count := func(status model.SyncStatus) {
		switch status {
		case model.SyncStatusPending:
			stats.Pending++
		case model.SyncStatusSyncing:
			stats.Syncing++
		case model.SyncStatusSynced:
			stats.Synced++
		case model.SyncStatusFailed:
			stats.Failed++
		case model.SyncStatusModified:
			stats.Modified++
		case model.SyncStatusDeleted:
			stats.Deleted++
		}
	}
	for _, env := range loadOrders(m.storage) {
		count(env.SyncStatus)
	}
	for _, env := range loadTransactions(m.storage) {
		count(env.SyncStatus)
	}
	return stats
}

// postBatch 提交批量同步请求
func (m *Manager) postBatch(ctx context.Context, req *model.BatchSyncRequest) (*model.BatchSyncResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+batchSyncPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp model.ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("sync rejected: %s: %s", errResp.Error, errResp.Message)
		}
		return nil, fmt.Errorf("sync rejected: status %d", httpResp.StatusCode)
	}

	var resp model.BatchSyncResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// applyResponseLocked 回放服务端确认并合并增量数据，调用方需持有 mu
// 结果数组与提交数组按位置一一对应，按 localId 回放到本地信封
func (m *Manager) applyResponseLocked(ctx context.Context, resp *model.BatchSyncResponse, pendingOrders []*model.SyncableOrder, pendingTxns []*model.SyncableTransaction) {
	orderResults := make(map[string]*model.SyncResult, len(resp.SyncedOrders))
	for i, result := range resp.SyncedOrders {
		if i >= len(pendingOrders) {
			break
		}
		orderResults[pendingOrders[i].LocalID] = result
	}
	txnResults := make(map[string]*model.SyncResult, len(resp.SyncedTransactions))
	for i, result := range resp.SyncedTransactions {
		if i >= len(pendingTxns) {
			break
		}
		txnResults[pendingTxns[i].LocalID] = result
	}

	orders := loadOrders(m.storage)
	txns := loadTransactions(m.storage)

	ackedDeletes := make(map[string]bool)
	for _, env := range orders {
		result, ok := orderResults[env.LocalID]
		if !ok {
			continue
		}
		if env.SyncStatus == model.SyncStatusDeleted {
			if result.Success {
				ackedDeletes[env.LocalID] = true
			}
			continue
		}
		if result.Success {
			if err := env.MarkAsSynced(result); err != nil {
				m.log.Warnf(ctx, "ack order failed: local_id=%s, error=%v", env.LocalID, err)
			}
		} else {
			_ = env.MarkAsFailed()
		}
	}
	for _, env := range txns {
		result, ok := txnResults[env.LocalID]
		if !ok {
			continue
		}
		if env.SyncStatus == model.SyncStatusDeleted {
			if result.Success {
				ackedDeletes[env.LocalID] = true
			}
			continue
		}
		if result.Success {
			if err := env.MarkAsSynced(result); err != nil {
				m.log.Warnf(ctx, "ack transaction failed: local_id=%s, error=%v", env.LocalID, err)
			}
		} else {
			_ = env.MarkAsFailed()
		}
	}

	// 服务端确认删除的信封从本地移除
	if len(ackedDeletes) > 0 {
		orders = filterOrders(orders, func(env *model.SyncableOrder) bool { return !ackedDeletes[env.LocalID] })
		txns = filterTransactions(txns, func(env *model.SyncableTransaction) bool { return !ackedDeletes[env.LocalID] })
	}

	if resp.ServerUpdates != nil {
		orders = mergeOrders(orders, resp.ServerUpdates.Orders)
		txns = mergeTransactions(txns, resp.ServerUpdates.Transactions)

		deleted := make(map[string]bool)
		for _, id := range resp.ServerUpdates.DeletedOrderIDs {
			deleted[id] = true
		}
		orders = filterOrders(orders, func(env *model.SyncableOrder) bool { return !deleted[env.LocalID] })

		deleted = make(map[string]bool)
		for _, id := range resp.ServerUpdates.DeletedTransactionIDs {
			deleted[id] = true
		}
		txns = filterTransactions(txns, func(env *model.SyncableTransaction) bool { return !deleted[env.LocalID] })
	}

	saveOrders(m.storage, orders)
	saveTransactions(m.storage, txns)

	if resp.NextSyncToken != "" {
		m.storage.Set(keyLastSyncTimestamp, resp.NextSyncToken)
	}
}

// markSyncingAsFailedLocked 在途信封回退为 FAILED，调用方需持有 mu
func (m *Manager) markSyncingAsFailedLocked() {
	orders := loadOrders(m.storage)
	for _, env := range orders {
		if env.SyncStatus == model.SyncStatusSyncing {
			_ = env.MarkAsFailed()
		}
	}
	saveOrders(m.storage, orders)

	txns := loadTransactions(m.storage)
	for _, env := range txns {
		if env.SyncStatus == model.SyncStatusSyncing {
			_ = env.MarkAsFailed()
		}
	}
	saveTransactions(m.storage, txns)
}

// lastSyncTimestamp 读取上次同步时间戳
func (m *Manager) lastSyncTimestamp() *int64 {
	raw, ok := m.storage.Get(keyLastSyncTimestamp)
	if !ok || raw == "" {
		return nil
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &ts
}

// mergeOrders 合并服务端增量订单：本地有未同步修改的不覆盖
func mergeOrders(local []*model.SyncableOrder, incoming []*model.SyncableOrder) []*model.SyncableOrder {
	index := make(map[string]int, len(local))
	for i, env := range local {
		index[env.LocalID] = i
	}
	for _, env := range incoming {
		if i, ok := index[env.LocalID]; ok {
			if local[i].NeedsSync() || local[i].SyncStatus == model.SyncStatusSyncing {
				continue
			}
			local[i] = env
		} else {
			local = append(local, env)
		}
	}
	return local
}

// mergeTransactions 合并服务端增量交易
func mergeTransactions(local []*model.SyncableTransaction, incoming []*model.SyncableTransaction) []*model.SyncableTransaction {
	index := make(map[string]int, len(local))
	for i, env := range local {
		index[env.LocalID] = i
	}
	for _, env := range incoming {
		if i, ok := index[env.LocalID]; ok {
			if local[i].NeedsSync() || local[i].SyncStatus == model.SyncStatusSyncing {
				continue
			}
			local[i] = env
		} else {
			local = append(local, env)
		}
	}
	return local
}

func filterOrders(list []*model.SyncableOrder, keep func(*model.SyncableOrder) bool) []*model.SyncableOrder {
	out := list[:0]
	for _, env := range list {
		if keep(env) {
			out = append(out, env)
		}
	}
	return out
}

func filterTransactions(list []*model.SyncableTransaction, keep func(*model.SyncableTransaction) bool) []*model.SyncableTransaction {
	out := list[:0]
	for _, env := range list {
		if keep(env) {
			out = append(out, env)
		}
	}
	return out
}
