// internal/service/trade/application/dto.go
package application

import "hmall/internal/service/trade/domain"

// CreateOrderRequest 是创建订单接口的请求体。
// 用户 id 不在请求体里，从网关注入的 header 中取得。
type CreateOrderRequest struct {
	PaymentType int                    `json:"paymentType"`
	Details     []domain.OrderLineForm `json:"details"`
}

// ToOrderForm 把接口层请求转换为领域表单。
func (r *CreateOrderRequest) ToOrderForm(userID int64) *domain.OrderForm {
	return &domain.OrderForm{
		UserID:      userID,
		PaymentType: r.PaymentType,
		Details:     r.Details,
	}
}

// CreateOrderResponse 是创建订单接口的响应体。
type CreateOrderResponse struct {
	OrderID int64 `json:"orderId"`
}

// OrderResponse 是订单查询接口的响应体。
type OrderResponse struct {
	OrderID     int64                `json:"orderId"`
	UserID      int64                `json:"userId"`
	TotalFee    int64                `json:"totalFee"`
	PaymentType int                  `json:"paymentType"`
	Status      int                  `json:"status"`
	CreateTime  string               `json:"createTime"`
	PayTime     string               `json:"payTime,omitempty"`
	Details     []domain.OrderDetail `json:"details"`
}
