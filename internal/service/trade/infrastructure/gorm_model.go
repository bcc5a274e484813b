// internal/service/trade/infrastructure/gorm_model.go
package infrastructure

import "time"

// OrderModel 对应数据库中的 order 表。
// 主键是 MySQL 自增 id：全局唯一且单调递增，天然适合按创建顺序排序。
type OrderModel struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	UserID      int64 `gorm:"index"`
	TotalFee    int64
	PaymentType int
	Status      int        `gorm:"type:tinyint;index"`
	PayTime     *time.Time `gorm:"default:null"`
	CreateTime  time.Time  `gorm:"autoCreateTime"`
	UpdateTime  time.Time  `gorm:"autoUpdateTime"`
}

func (OrderModel) TableName() string {
	return "order"
}

// OrderDetailModel 对应数据库中的 order_detail 表。
// 价格等字段是下单时刻的商品快照，落库后不再更新。
type OrderDetailModel struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	OrderID int64 `gorm:"index:idx_order_item,priority:1"`
	ItemID  int64 `gorm:"index:idx_order_item,priority:2"`
	Num     int
	Price   int64
	Name    string `gorm:"size:256"`
	Spec    string `gorm:"size:1024"`
	Image   string `gorm:"size:512"`
}

func (OrderDetailModel) TableName() string {
	return "order_detail"
}
