// internal/service/trade/infrastructure/adapter/cart_http_adapter.go
package adapter

import (
	"context"

	"hmall/internal/pkg/constants"
	"hmall/internal/pkg/httpclient"

	"github.com/pkg/errors"
)

// CartHTTPAdapter 实现了 port.CartService。
// 错误原样返回，是否致命由调用方决定（下单流程里是尽力而为）。
type CartHTTPAdapter struct {
	client *httpclient.Client
}

func NewCartHTTPAdapter(client *httpclient.Client) *CartHTTPAdapter {
	return &CartHTTPAdapter{client: client}
}

type deleteCartItemsRequest struct {
	UserID  int64   `json:"userId"`
	ItemIDs []int64 `json:"itemIds"`
}

func (a *CartHTTPAdapter) DeleteCartItems(ctx context.Context, userID int64, itemIDs []int64) error {
	req := deleteCartItemsRequest{UserID: userID, ItemIDs: itemIDs}
	if err := a.client.PostJSON(ctx, constants.CartService, constants.CartDeleteItemsPath, req); err != nil {
		return errors.Wrap(err, "failed to delete cart items")
	}
	return nil
}
