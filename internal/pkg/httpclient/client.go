// internal/pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StatusError 表示下游服务返回了非 2xx 状态码。
// 调用方可以据此区分业务拒绝（4xx）和服务端故障（5xx）。
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d: %s", e.Service, e.Code, e.Body)
}

// Discovery 解析服务名到一个健康实例，由 Nacos 客户端实现。
type Discovery interface {
	DiscoverServiceInstance(serviceName string) (string, int, error)
}

// Client 是一个可追踪的 HTTP 客户端，通过 Discovery 发现下游服务实例。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	Discovery  Discovery
}

// NewClient 创建一个新的客户端实例。
// 不设置全局 Timeout，超时完全由每次请求传入的 context 控制。
func NewClient(tracer trace.Tracer, discovery Discovery) *Client {
	return &Client{
		Tracer: tracer,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
		Discovery: discovery,
	}
}

// PostJSON 向指定服务的路径发送 JSON 请求体，忽略响应内容。
func (c *Client) PostJSON(ctx context.Context, serviceName, path string, body any) error {
	return c.call(ctx, http.MethodPost, serviceName, path, nil, body, nil)
}

// GetJSON 向指定服务发送 GET 请求并将响应 JSON 解码到 out。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, params url.Values, out any) error {
	return c.call(ctx, http.MethodGet, serviceName, path, params, nil, out)
}

func (c *Client) call(ctx context.Context, method, serviceName, path string, params url.Values, body, out any) error {
	ctx, span := c.Tracer.Start(ctx, "call-"+serviceName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ip, port, err := c.Discovery.DiscoverServiceInstance(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "service discovery failed")
		return err
	}

	downstreamURL := url.URL{
		Scheme:   "http",
		Host:     fmt.Sprintf("%s:%d", ip, port),
		Path:     path,
		RawQuery: params.Encode(),
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, downstreamURL.String(), reqBody)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", downstreamURL.String()),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{Service: serviceName, Code: resp.StatusCode, Body: string(respBody)}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			return fmt.Errorf("decode response from %s: %w", serviceName, err)
		}
	}
	return nil
}
