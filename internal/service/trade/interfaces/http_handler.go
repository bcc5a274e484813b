// internal/service/trade/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"hmall/internal/pkg/logger"
	"hmall/internal/service/trade/application"
	"hmall/internal/service/trade/domain"
	"hmall/internal/service/trade/domain/port"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const serviceName = "trade-service"

// TradeHandler 封装了 trade 服务的 HTTP 处理器。
// 认证在网关完成，这里只消费网关注入的 userInfo header。
type TradeHandler struct {
	service *application.TradeApplicationService
}

func NewTradeHandler(service *application.TradeApplicationService) *TradeHandler {
	return &TradeHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *TradeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("PUT /orders/{id}/cancel", h.cancelOrder)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
}

func (h *TradeHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CreateOrder")
	defer span.End()

	userID, err := strconv.ParseInt(r.Header.Get("userInfo"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid user identity", http.StatusUnauthorized)
		return
	}

	var req application.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	orderID, err := h.service.CreateOrder(ctx, req.ToOrderForm(userID))
	if err != nil {
		span.RecordError(err)
		writeCreateError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(application.CreateOrderResponse{OrderID: orderID})
}

// writeCreateError 把下单失败的错误分类映射到 HTTP 状态码。
func writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrDuplicateItem),
		errors.Is(err, domain.ErrItemsNotFound):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, port.ErrStockInsufficient):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *TradeHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.CancelOrder")
	defer span.End()

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	// 已支付或已取消的订单上取消是无害的空操作，同样返回成功
	if err := h.service.CancelOrder(ctx, orderID); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Int64("order_id", orderID).Msg("cancel order failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *TradeHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.GetOrder")
	defer span.End()

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
