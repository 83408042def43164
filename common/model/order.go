package model

import (
	"sort"
	"strconv"
	"strings"
)

// 支付方式常量
const (
	PaymentMethodCash   = "CASH"
	PaymentMethodCard   = "CARD"
	PaymentMethodMobile = "MOBILE"
)

// 支付状态常量
const (
	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// 订单状态常量
const (
	OrderStatusOpen      = "OPEN"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Order POS 订单快照（值对象）
// 金额由上游业务计算完成，同步核心只关心其标识与内容，不参与计算
type Order struct {
	ID            string       `json:"id"`
	OrderNumber   string       `json:"orderNumber"`
	Items         []*OrderItem `json:"items"`
	CustomerID    string       `json:"customerId,omitempty"`
	CustomerName  string       `json:"customerName,omitempty"`
	TableID       string       `json:"tableId,omitempty"`
	TableName     string       `json:"tableName,omitempty"`
	Subtotal      float64      `json:"subtotal"`
	Tax           float64      `json:"tax"`
	Discount      float64      `json:"discount"`
	Total         float64      `json:"total"`
	PaymentMethod string       `json:"paymentMethod"`
	PaymentStatus string       `json:"paymentStatus"`
	OrderStatus   string       `json:"orderStatus"`
	Notes         string       `json:"notes,omitempty"`
	CreatedAt     int64        `json:"createdAt"`
	CompletedAt   *int64       `json:"completedAt,omitempty"`
}

// OrderItem 订单明细项（值对象）
type OrderItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Subtotal    float64 `json:"subtotal"`
	Notes       string  `json:"notes,omitempty"`
}

// Canonical 生成订单的规范化字节序列，作为内容哈希的输入
// 字段顺序固定、金额统一保留两位小数、明细按 productId 排序，
// 保证相同业务内容在任何设备上序列化结果一致
func (o *Order) Canonical() []byte {
	var b strings.Builder
	b.WriteString("order|")
	b.WriteString(o.ID)
	b.WriteByte('|')
	b.WriteString(o.OrderNumber)
	b.WriteByte('|')
	b.WriteString(o.CustomerID)
	b.WriteByte('|')
	b.WriteString(o.CustomerName)
	b.WriteByte('|')
	b.WriteString(o.TableID)
	b.WriteByte('|')
	b.WriteString(o.TableName)
	b.WriteByte('|')
	b.WriteString(formatAmount(o.Subtotal))
	b.WriteByte('|')
	b.WriteString(formatAmount(o.Tax))
	b.WriteByte('|')
	b.WriteString(formatAmount(o.Discount))
	b.WriteByte('|')
	b.WriteString(formatAmount(o.Total))
	b.WriteByte('|')
	b.WriteString(o.PaymentMethod)
	b.WriteByte('|')
	b.WriteString(o.PaymentStatus)
	b.WriteByte('|')
	b.WriteString(o.OrderStatus)
	b.WriteByte('|')
	b.WriteString(o.Notes)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(o.CreatedAt, 10))
	b.WriteByte('|')
	b.WriteString(formatOptionalMillis(o.CompletedAt))

	items := make([]*OrderItem, len(o.Items))
	copy(items, o.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	for _, item := range items {
		b.WriteString("|item:")
		b.WriteString(item.ProductID)
		b.WriteByte(',')
		b.WriteString(item.ProductName)
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(item.Quantity))
		b.WriteByte(',')
		b.WriteString(formatAmount(item.UnitPrice))
		b.WriteByte(',')
		b.WriteString(formatAmount(item.Subtotal))
		b.WriteByte(',')
		b.WriteString(item.Notes)
	}

	return []byte(b.String())
}

// formatAmount 金额统一格式化为两位小数
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatOptionalMillis 可空毫秒时间戳格式化，空值输出占位符
func formatOptionalMillis(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
