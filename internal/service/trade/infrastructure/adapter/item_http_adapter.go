// internal/service/trade/infrastructure/adapter/item_http_adapter.go
package adapter

import (
	"context"
	stderrors "errors"
	"net/url"
	"strconv"
	"strings"

	"hmall/internal/pkg/constants"
	"hmall/internal/pkg/httpclient"
	"hmall/internal/pkg/logger"
	"hmall/internal/service/trade/domain"
	"hmall/internal/service/trade/domain/port"

	"github.com/pkg/errors"
)

// ItemHTTPAdapter 实现了 port.ItemService，通过 Nacos 发现 item-service 实例。
//
// 降级策略与调用语义绑定：
//   - 查询是只读的，失败时降级为空结果，上层会当作"商品不存在"拒绝下单；
//   - 扣减/恢复是写操作，任何失败都必须以明确的错误类别返回。
type ItemHTTPAdapter struct {
	client *httpclient.Client
}

func NewItemHTTPAdapter(client *httpclient.Client) *ItemHTTPAdapter {
	return &ItemHTTPAdapter{client: client}
}

// QueryItemsByIds 批量查询商品。服务不可用时返回空结果而不是错误，
// 把不可用保守地当作拒绝而不是让订单部分成交。
func (a *ItemHTTPAdapter) QueryItemsByIds(ctx context.Context, ids []int64) ([]domain.Item, error) {
	idStrs := make([]string, 0, len(ids))
	for _, id := range ids {
		idStrs = append(idStrs, strconv.FormatInt(id, 10))
	}
	params := url.Values{}
	params.Set("ids", strings.Join(idStrs, ","))

	var items []domain.Item
	if err := a.client.GetJSON(ctx, constants.ItemService, constants.ItemQueryPath, params, &items); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("item query failed, degrading to empty result")
		return nil, nil
	}
	return items, nil
}

// DeductStock 扣减库存。业务拒绝（4xx，库存不足）和服务不可用
// 映射为不同的错误类别，编排层据此决策。
func (a *ItemHTTPAdapter) DeductStock(ctx context.Context, entries []domain.StockEntry) error {
	if err := a.client.PostJSON(ctx, constants.ItemService, constants.StockDeductPath, entries); err != nil {
		return classifyStockError(err, "deduct")
	}
	return nil
}

// RestoreStock 恢复库存。失败必须返回错误，绝不静默成功：
// 此时订单状态通常已翻到已关闭，吞掉错误就是永久性的库存少账。
func (a *ItemHTTPAdapter) RestoreStock(ctx context.Context, entries []domain.StockEntry) error {
	if err := a.client.PostJSON(ctx, constants.ItemService, constants.StockRestorePath, entries); err != nil {
		return classifyStockError(err, "restore")
	}
	return nil
}

func classifyStockError(err error, op string) error {
	var statusErr *httpclient.StatusError
	if stderrors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 {
		return errors.Wrapf(port.ErrStockInsufficient, "item service rejected %s: %v", op, err)
	}
	return errors.Wrapf(port.ErrItemServiceUnavailable, "stock %s call failed: %v", op, err)
}
