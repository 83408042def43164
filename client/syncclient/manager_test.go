package syncclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
	"github.com/kachmul2004/auraflowpos-sub004/internal/app/pkg/logger"
)

func clientTestOrder(id string) *model.Order {
	return &model.Order{
		ID:          id,
		OrderNumber: "ORD-" + id,
		Total:       9.90,
		CreatedAt:   1705300000000,
	}
}

// ackAllServer 对每个提交的实体返回成功确认
func ackAllServer(t *testing.T, gotReq *model.BatchSyncRequest, updates *model.ServerUpdates) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sync/batch", r.URL.Path)

		var req model.BatchSyncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode batch request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if gotReq != nil {
			*gotReq = req
		}

		resp := &model.BatchSyncResponse{Success: true, NextSyncToken: "1705301000000", ServerUpdates: updates}
		for _, o := range req.Orders {
			resp.SyncedOrders = append(resp.SyncedOrders, &model.SyncResult{
				Success: true, ServerID: "srv-" + o.LocalID, SyncedAt: 1705301000000,
			})
		}
		for _, x := range req.Transactions {
			resp.SyncedTransactions = append(resp.SyncedTransactions, &model.SyncResult{
				Success: true, ServerID: "srv-" + x.LocalID, SyncedAt: 1705301000000,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestManagerDeviceIDPersists(t *testing.T) {
	storage := NewMemoryStorage()
	m1 := NewManager("http://unused", storage, logger.NewNopLogger())
	require.NotEmpty(t, m1.DeviceID())

	m2 := NewManager("http://unused", storage, logger.NewNopLogger())
	assert.Equal(t, m1.DeviceID(), m2.DeviceID())
}

func TestSaveOrderForSync(t *testing.T) {
	storage := NewMemoryStorage()
	m := NewManager("http://unused", storage, logger.NewNopLogger())

	env, err := m.SaveOrderForSync(clientTestOrder("order-001"))
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusPending, env.SyncStatus)
	assert.Equal(t, 1, env.SyncVersion)
	assert.Equal(t, m.DeviceID(), env.DeviceID)

	// 再次保存同一订单走修改路径
	updated := clientTestOrder("order-001")
	updated.Total = 12.90
	env, err = m.SaveOrderForSync(updated)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStatusModified, env.SyncStatus)
	assert.Equal(t, 2, env.SyncVersion)
	assert.Equal(t, 12.90, env.Order.Total)

	stats := m.Stats()
	assert.Equal(t, 1, stats.Modified)
	assert.Equal(t, 0, stats.Pending)
}

func TestSyncWithServerAcksEnvelopes(t *testing.T) {
	var gotReq model.BatchSyncRequest
	server := ackAllServer(t, &gotReq, nil)
	defer server.Close()

	storage := NewMemoryStorage()
	m := NewManager(server.URL, storage, logger.NewNopLogger())

	_, err := m.SaveOrderForSync(clientTestOrder("order-001"))
	require.NoError(t, err)
	_, err = m.SaveTransactionForSync(&model.Transaction{
		ID: "txn-001", Type: model.TransactionTypeSale, Amount: 9.90, CreatedAt: 1705300050000,
	})
	require.NoError(t, err)

	resp, err := m.SyncWithServer(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Success)

	require.Len(t, gotReq.Orders, 1)
	assert.Equal(t, "order-001", gotReq.Orders[0].LocalID)
	assert.Equal(t, model.SyncStatusSyncing, gotReq.Orders[0].SyncStatus)
	require.Len(t, gotReq.Transactions, 1)

	stats := m.Stats()
	assert.Equal(t, 2, stats.Synced)
	assert.Equal(t, 0, stats.Pending)
	require.NotNil(t, stats.LastSyncTimestamp)
	assert.Equal(t, int64(1705301000000), *stats.LastSyncTimestamp)

	// 确认后的信封采纳了服务端 ID
	orders := loadOrders(storage)
	require.Len(t, orders, 1)
	assert.Equal(t, "srv-order-001", orders[0].Order.ID)
}

func TestSyncWithServerSendsLastSyncTimestamp(t *testing.T) {
	var gotReq model.BatchSyncRequest
	server := ackAllServer(t, &gotReq, nil)
	defer server.Close()

	storage := NewMemoryStorage()
	storage.Set(keyLastSyncTimestamp, "1705300500000")
	m := NewManager(server.URL, storage, logger.NewNopLogger())

	_, err := m.SyncWithServer(context.Background())
	require.NoError(t, err)

	require.NotNil(t, gotReq.LastSyncTimestamp)
	assert.Equal(t, int64(1705300500000), *gotReq.LastSyncTimestamp)
}

func TestSyncWithServerTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 立即关闭模拟网络不可达

	storage := NewMemoryStorage()
	m := NewManager(server.URL, storage, logger.NewNopLogger())

	_, err := m.SaveOrderForSync(clientTestOrder("order-001"))
	require.NoError(t, err)

	_, err = m.SyncWithServer(context.Background())
	require.Error(t, err)

	// 在途信封回退为 FAILED，下一轮重新提交
	stats := m.Stats()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Syncing)

	orders := loadOrders(storage)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].NeedsSync())
}

func TestSyncWithServerErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(model.ErrorResponse{
			Error: model.ErrCodeSyncFailed, Message: "Failed to sync data", StatusCode: 500,
		})
	}))
	defer server.Close()

	storage := NewMemoryStorage()
	m := NewManager(server.URL, storage, logger.NewNopLogger())

	_, err := m.SaveOrderForSync(clientTestOrder("order-001"))
	require.NoError(t, err)

	_, err = m.SyncWithServer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_FAILED")
	assert.Equal(t, 1, m.Stats().Failed)
}

func TestRecoverInFlight(t *testing.T) {
	storage := NewMemoryStorage()
	m := NewManager("http://unused", storage, logger.NewNopLogger())

	env, err := m.SaveOrderForSync(clientTestOrder("order-001"))
	require.NoError(t, err)
	require.NoError(t, env.MarkAsSyncing())
	saveOrders(storage, []*model.SyncableOrder{env})

	// 进程重启后在途状态清扫
	m2 := NewManager("http://unused", storage, logger.NewNopLogger())
	m2.RecoverInFlight()

	orders := loadOrders(storage)
	require.Len(t, orders, 1)
	assert.Equal(t, model.SyncStatusFailed, orders[0].SyncStatus)
}

func TestSyncMergesServerUpdates(t *testing.T) {
	remote := &model.SyncableOrder{
		Order: clientTestOrder("order-remote"),
		SyncMeta: model.SyncMeta{
			LocalID: "order-remote", SyncStatus: model.SyncStatusSynced,
			SyncVersion: 1, DeviceID: "device-other",
		},
	}
	updates := &model.ServerUpdates{
		Orders:          []*model.SyncableOrder{remote},
		DeletedOrderIDs: []string{"order-gone"},
	}
	server := ackAllServer(t, nil, updates)
	defer server.Close()

	storage := NewMemoryStorage()
	m := NewManager(server.URL, storage, logger.NewNopLogger())

	// 本地有一条服务端已删除的订单
	gone, err := m.SaveOrderForSync(clientTestOrder("order-gone"))
	require.NoError(t, err)
	require.NoError(t, gone.MarkAsSyncing())
	require.NoError(t, gone.MarkAsSynced(&model.SyncResult{Success: true, SyncedAt: 1}))
	saveOrders(storage, []*model.SyncableOrder{gone})

	_, err = m.SyncWithServer(context.Background())
	require.NoError(t, err)

	orders := loadOrders(storage)
	require.Len(t, orders, 1)
	assert.Equal(t, "order-remote", orders[0].LocalID)
}

func TestMergeKeepsLocalPendingChanges(t *testing.T) {
	local := &model.SyncableOrder{
		Order: clientTestOrder("order-001"),
		SyncMeta: model.SyncMeta{
			LocalID: "order-001", SyncStatus: model.SyncStatusModified,
			SyncVersion: 3, DeviceID: "device-a",
		},
	}
	incoming := &model.SyncableOrder{
		Order: clientTestOrder("order-001"),
		SyncMeta: model.SyncMeta{
			LocalID: "order-001", SyncStatus: model.SyncStatusSynced,
			SyncVersion: 2, DeviceID: "device-other",
		},
	}

	// 本地未同步的修改优先于服务端副本
	merged := mergeOrders([]*model.SyncableOrder{local}, []*model.SyncableOrder{incoming})
	require.Len(t, merged, 1)
	assert.Equal(t, 3, merged[0].SyncVersion)
	assert.Equal(t, "device-a", merged[0].DeviceID)
}

func TestDeleteOrderPropagation(t *testing.T) {
	var gotReq model.BatchSyncRequest
	server := ackAllServer(t, &gotReq, nil)
	defer server.Close()

	storage := NewMemoryStorage()
	m := NewManager(server.URL, storage, logger.NewNopLogger())

	_, err := m.SaveOrderForSync(clientTestOrder("order-001"))
	require.NoError(t, err)
	require.NoError(t, m.DeleteOrder("order-001"))

	assert.Error(t, m.DeleteOrder("order-404"))

	_, err = m.SyncWithServer(context.Background())
	require.NoError(t, err)

	// 墓碑随批次提交，确认后从本地移除
	require.Len(t, gotReq.Orders, 1)
	assert.Equal(t, model.SyncStatusDeleted, gotReq.Orders[0].SyncStatus)
	assert.Empty(t, loadOrders(storage))
}

func TestSyncInProgressGuard(t *testing.T) {
	storage := NewMemoryStorage()
	m := NewManager("http://unused", storage, logger.NewNopLogger())

	m.syncing.Store(true)
	_, err := m.SyncWithServer(context.Background())
	assert.ErrorIs(t, err, ErrSyncInProgress)
}
