// internal/service/trade/domain/order.go
package domain

import (
	"errors"
	"time"
)

// 订单状态码，持久化在 order 表中。
// 历史版本里取消分支曾误用过已支付的状态码，这里的取值是明确区分的：
// 未支付(1) -> 已支付(2)；未支付(1) -> 已关闭(5)。两个终态之后状态不再变化。
const (
	StatusPendingPayment = 1
	StatusPaid           = 2
	StatusCancelled      = 5
)

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrDuplicateItem   = errors.New("duplicate item id in order form")
	ErrItemsNotFound   = errors.New("some items do not exist")
	ErrOrderNotFound   = errors.New("order not found")
)

// Order 是订单聚合的根实体。
// TotalFee 以最小货币单位（分）存储，由服务端根据商品快照计算，
// 从不信任客户端提交的价格。
type Order struct {
	ID          int64
	UserID      int64
	TotalFee    int64
	PaymentType int
	Status      int
	CreateTime  time.Time
	PayTime     *time.Time
}

// OrderDetail 是订单行。价格、名称、规格、图片是下单时刻的商品快照，
// 与在售商品解耦，后续改价不会影响历史订单。创建后不再修改。
type OrderDetail struct {
	OrderID int64
	ItemID  int64
	Num     int
	Price   int64
	Name    string
	Spec    string
	Image   string
}

// Item 是从 item-service 查询到的商品信息。
type Item struct {
	ID    int64  `json:"id"`
	Price int64  `json:"price"`
	Name  string `json:"name"`
	Spec  string `json:"spec"`
	Image string `json:"image"`
	Stock int    `json:"stock"`
}

// StockEntry 是一次库存扣减/恢复涉及的单个条目。
type StockEntry struct {
	ItemID int64 `json:"itemId"`
	Num    int   `json:"num"`
}

// OrderForm 是创建订单的输入：购买人、支付方式和购买明细。
type OrderForm struct {
	UserID      int64
	PaymentType int
	Details     []OrderLineForm
}

// OrderLineForm 是购买明细中的一行。
type OrderLineForm struct {
	ItemID int64 `json:"itemId"`
	Num    int   `json:"num"`
}

// Validate 在任何远程调用或写库之前拒绝非法输入。
func (f *OrderForm) Validate() error {
	if len(f.Details) == 0 {
		return ErrEmptyOrder
	}
	seen := make(map[int64]struct{}, len(f.Details))
	for _, line := range f.Details {
		if line.Num <= 0 {
			return ErrInvalidQuantity
		}
		if _, ok := seen[line.ItemID]; ok {
			return ErrDuplicateItem
		}
		seen[line.ItemID] = struct{}{}
	}
	return nil
}

// ItemIDs 返回去重后的商品 id 列表。
func (f *OrderForm) ItemIDs() []int64 {
	ids := make([]int64, 0, len(f.Details))
	for _, line := range f.Details {
		ids = append(ids, line.ItemID)
	}
	return ids
}

// NewOrder 是订单聚合的工厂函数。
// items 是根据表单查询到的权威商品数据；如果数量少于请求的商品数，
// 说明有商品已下架或被删除，整个创建失败，不允许部分成交。
// 总价 = Σ 商品单价 × 购买数量，单价只取查询结果，不取表单。
func NewOrder(form *OrderForm, items []Item) (*Order, []OrderDetail, error) {
	if err := form.Validate(); err != nil {
		return nil, nil, err
	}

	numByItem := make(map[int64]int, len(form.Details))
	for _, line := range form.Details {
		numByItem[line.ItemID] = line.Num
	}
	if len(items) < len(numByItem) {
		return nil, nil, ErrItemsNotFound
	}

	var total int64
	details := make([]OrderDetail, 0, len(items))
	for _, item := range items {
		num, ok := numByItem[item.ID]
		if !ok {
			return nil, nil, ErrItemsNotFound
		}
		total += item.Price * int64(num)
		details = append(details, OrderDetail{
			ItemID: item.ID,
			Num:    num,
			Price:  item.Price,
			Name:   item.Name,
			Spec:   item.Spec,
			Image:  item.Image,
		})
	}

	order := &Order{
		UserID:      form.UserID,
		TotalFee:    total,
		PaymentType: form.PaymentType,
		Status:      StatusPendingPayment,
		CreateTime:  time.Now(),
	}
	return order, details, nil
}

// StockEntries 把订单行转换为库存操作条目。
// 取消订单时恢复的数量必须与创建时扣减的数量一致。
func StockEntries(details []OrderDetail) []StockEntry {
	entries := make([]StockEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, StockEntry{ItemID: d.ItemID, Num: d.Num})
	}
	return entries
}
