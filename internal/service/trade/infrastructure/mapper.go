// internal/service/trade/infrastructure/mapper.go
package infrastructure

import "hmall/internal/service/trade/domain"

func toOrderModel(order *domain.Order) *OrderModel {
	return &OrderModel{
		ID:          order.ID,
		UserID:      order.UserID,
		TotalFee:    order.TotalFee,
		PaymentType: order.PaymentType,
		Status:      order.Status,
		PayTime:     order.PayTime,
		CreateTime:  order.CreateTime,
	}
}

func toDomainOrder(model *OrderModel) *domain.Order {
	return &domain.Order{
		ID:          model.ID,
		UserID:      model.UserID,
		TotalFee:    model.TotalFee,
		PaymentType: model.PaymentType,
		Status:      model.Status,
		PayTime:     model.PayTime,
		CreateTime:  model.CreateTime,
	}
}

func toDetailModels(orderID int64, details []domain.OrderDetail) []OrderDetailModel {
	models := make([]OrderDetailModel, 0, len(details))
	for _, d := range details {
		models = append(models, OrderDetailModel{
			OrderID: orderID,
			ItemID:  d.ItemID,
			Num:     d.Num,
			Price:   d.Price,
			Name:    d.Name,
			Spec:    d.Spec,
			Image:   d.Image,
		})
	}
	return models
}

func toDomainDetails(models []OrderDetailModel) []domain.OrderDetail {
	details := make([]domain.OrderDetail, 0, len(models))
	for _, m := range models {
		details = append(details, domain.OrderDetail{
			OrderID: m.OrderID,
			ItemID:  m.ItemID,
			Num:     m.Num,
			Price:   m.Price,
			Name:    m.Name,
			Spec:    m.Spec,
			Image:   m.Image,
		})
	}
	return details
}
