// internal/service/trade/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"hmall/internal/service/trade/domain"

	"gorm.io/gorm"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create 在一个本地事务中写入订单和全部订单行。
// 自增主键由数据库分配，提交后回填到聚合上。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order, details []domain.OrderDetail) error {
	model := toOrderModel(order)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		detailModels := toDetailModels(model.ID, details)
		if err := tx.Create(&detailModels).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	order.ID = model.ID
	for i := range details {
		details[i].OrderID = model.ID
	}
	return nil
}

// Delete 删除订单及其订单行，saga 补偿用。
func (r *GormOrderRepository) Delete(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&OrderDetailModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(&OrderModel{}, orderID).Error
	})
}

func (r *GormOrderRepository) FindByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return toDomainOrder(&model), nil
}

func (r *GormOrderRepository) FindDetails(ctx context.Context, orderID int64) ([]domain.OrderDetail, error) {
	var models []OrderDetailModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&models).Error
	if err != nil {
		return nil, err
	}
	return toDomainDetails(models), nil
}

// CancelIfPending 执行单条条件更新：
//
//	UPDATE `order` SET status = 5 WHERE id = ? AND status = 1
//
// 这条语句就是整个取消路径的并发仲裁点。支付确认和延迟取消
// 可能同时到达，谁先改掉状态谁赢，数据库保证只有一个赢家。
// 返回 false（零行生效）表示订单已离开待支付状态，调用方不需要补偿。
func (r *GormOrderRepository) CancelIfPending(ctx context.Context, orderID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND status = ?", orderID, domain.StatusPendingPayment).
		Updates(map[string]interface{}{
			"status":      domain.StatusCancelled,
			"update_time": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaidIfPending 与 CancelIfPending 同一个条件更新模式，
// 额外写入支付时间。
func (r *GormOrderRepository) MarkPaidIfPending(ctx context.Context, orderID int64, payTime time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND status = ?", orderID, domain.StatusPendingPayment).
		Updates(map[string]interface{}{
			"status":      domain.StatusPaid,
			"pay_time":    payTime,
			"update_time": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
