// internal/pkg/constants/constants.go
package constants

// 下游服务在 Nacos 中注册的名字
const (
	ItemService = "item-service"
	CartService = "cart-service"
)

// item-service 的接口路径
const (
	ItemQueryPath    = "/items/batch"
	StockDeductPath  = "/items/stock/deduct"
	StockRestorePath = "/items/stock/restore"
)

// cart-service 的接口路径
const (
	CartDeleteItemsPath = "/carts/items/delete"
)

// Kafka 主题
const (
	OrderTimeoutCheckTopic = "order-timeout-check-topic"
	PaySuccessTopic        = "pay-success-topic"
)
