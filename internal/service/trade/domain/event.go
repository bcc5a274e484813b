// internal/service/trade/domain/event.go
package domain

import "time"

// OrderTimeoutCheckEvent 是延迟投递的"检查这个订单"信号。
// 消息本身不携带任何状态，消费端以订单当前状态为准，
// 因此 at-least-once 投递下的重复消息是安全的。
type OrderTimeoutCheckEvent struct {
	EventID      string    `json:"eventId"`
	OrderID      int64     `json:"orderId"`
	CreationTime time.Time `json:"creationTime"`
}

// PaySuccessEvent 由 pay-service 在支付成功后发出。
type PaySuccessEvent struct {
	OrderID int64     `json:"orderId"`
	PayTime time.Time `json:"payTime"`
}
