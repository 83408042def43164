package model

import (
	"strconv"
	"strings"
)

// 交易类型常量
const (
	TransactionTypeSale   = "SALE"
	TransactionTypeRefund = "REFUND"
	TransactionTypeVoid   = "VOID"
)

// 交易状态常量
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
)

// Transaction POS 财务交易快照（值对象）
// 交易是只追加记录：合法客户端不会以同一 localId 重新提交不同内容
type Transaction struct {
	ID              string  `json:"id"`
	ReferenceNumber string  `json:"referenceNumber"`
	OrderID         string  `json:"orderId"`
	OrderNumber     string  `json:"orderNumber"`
	Type            string  `json:"type"`
	Amount          float64 `json:"amount"`
	PaymentMethod   string  `json:"paymentMethod"`
	Status          string  `json:"status"`
	UserID          string  `json:"userId,omitempty"`
	UserName        string  `json:"userName,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	CreatedAt       int64   `json:"createdAt"`
	CompletedAt     *int64  `json:"completedAt,omitempty"`
}

// Canonical 生成交易的规范化字节序列，作为内容哈希的输入
// 字段顺序固定，金额统一保留两位小数
func (t *Transaction) Canonical() []byte {
	var b strings.Builder
	b.WriteString("transaction|")
	b.WriteString(t.ID)
	b.WriteByte('|')
	b.WriteString(t.ReferenceNumber)
	b.WriteByte('|')
	b.WriteString(t.OrderID)
	b.WriteByte('|')
	b.WriteString(t.OrderNumber)
	b.WriteByte('|')
	b.WriteString(t.Type)
	b.WriteByte('|')
	b.WriteString(formatAmount(t.Amount))
	b.WriteByte('|')
	b.WriteString(t.PaymentMethod)
	b.WriteByte('|')
	b.WriteString(t.Status)
	b.WriteByte('|')
	b.WriteString(t.UserID)
	b.WriteByte('|')
	b.WriteString(t.UserName)
	b.WriteByte('|')
	b.WriteString(t.Notes)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(t.CreatedAt, 10))
	b.WriteByte('|')
	b.WriteString(formatOptionalMillis(t.CompletedAt))
	return []byte(b.String())
}
