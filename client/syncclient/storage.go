package syncclient

import (
	"encoding/json"
	"sync"

	"github.com/kachmul2004/auraflowpos-sub004/common/model"
)

// 本地存储键
const (
	keySyncableOrders       = "syncable_orders"
	keySyncableTransactions = "syncable_transactions"
	keyLastSyncTimestamp    = "last_sync_timestamp"
	keyDeviceID             = "device_id"
)

// LocalStorage 终端本地键值存储抽象
// 设备端可用文件、SQLite 或任何 KV 实现，SDK 只依赖字符串读写
type LocalStorage interface {
	Get(key string) (string, bool)
	Set(key string, value string)
	Delete(key string)
}

// MemoryStorage 内存存储实现，适用于测试与演示
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStorage 创建内存存储
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string]string),
	}
}

func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStorage) Set(key string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *MemoryStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// loadOrders 从存储加载订单信封列表，无数据或解析失败返回空列表
func loadOrders(storage LocalStorage) []*model.SyncableOrder {
	raw, ok := storage.Get(keySyncableOrders)
	if !ok || raw == "" {
		return nil
	}
	var list []*model.SyncableOrder
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

// saveOrders 持久化订单信封列表
func saveOrders(storage LocalStorage, list []*model.SyncableOrder) {
	payload, err := json.Marshal(list)
	if err != nil {
		return
	}
	storage.Set(keySyncableOrders, string(payload))
}

// loadTransactions 从存储加载交易信封列表
func loadTransactions(storage LocalStorage) []*model.SyncableTransaction {
	raw, ok := storage.Get(keySyncableTransactions)
	if !ok || raw == "" {
		return nil
	}
	var list []*model.SyncableTransaction
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

// saveTransactions 持久化交易信封列表
func saveTransactions(storage LocalStorage, list []*model.SyncableTransaction) {
	payload, err := json.Marshal(list)
	if err != nil {
		return
	}
	storage.Set(keySyncableTransactions, string(payload))
}
