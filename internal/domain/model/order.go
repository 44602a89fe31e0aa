package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

// 終端ステータスかどうか。
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// TotalPrice は明細から導出した値を作成時に1回だけ書く。
// 作成後に変更できるのは Status のみ。
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerKey        string          `gorm:"type:varchar(255);not null;index" json:"owner_key"`
	ShippingAddress string          `gorm:"type:varchar(255);not null" json:"shipping_address"`
	ContactName     string          `gorm:"type:varchar(100);not null" json:"contact_name"`
	ContactEmail    string          `gorm:"type:varchar(100);not null" json:"contact_email"`
	PaymentMethod   string          `gorm:"type:varchar(50);not null" json:"payment_method"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
