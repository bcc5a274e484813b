package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hmall/internal/service/trade/domain"
	"hmall/internal/service/trade/domain/port"

	"go.opentelemetry.io/otel"
)

// ---- mock OrderRepository ----

type mockRepo struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]*domain.Order
	details map[int64][]domain.OrderDetail

	createErr  error
	detailsErr error
	deleted    []int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		nextID:  1000,
		orders:  make(map[int64]*domain.Order),
		details: make(map[int64][]domain.OrderDetail),
	}
}

func (m *mockRepo) Create(ctx context.Context, order *domain.Order, details []domain.OrderDetail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	order.ID = m.nextID
	saved := *order
	m.orders[order.ID] = &saved
	ds := make([]domain.OrderDetail, len(details))
	copy(ds, details)
	for i := range ds {
		ds[i].OrderID = order.ID
	}
	m.details[order.ID] = ds
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderID)
	delete(m.details, orderID)
	m.deleted = append(m.deleted, orderID)
	return nil
}

func (m *mockRepo) FindByID(ctx context.Context, orderID int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockRepo) FindDetails(ctx context.Context, orderID int64) ([]domain.OrderDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detailsErr != nil {
		return nil, m.detailsErr
	}
	return m.details[orderID], nil
}

func (m *mockRepo) CancelIfPending(ctx context.Context, orderID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != domain.StatusPendingPayment {
		return false, nil
	}
	o.Status = domain.StatusCancelled
	return true, nil
}

func (m *mockRepo) MarkPaidIfPending(ctx context.Context, orderID int64, payTime time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != domain.StatusPendingPayment {
		return false, nil
	}
	o.Status = domain.StatusPaid
	o.PayTime = &payTime
	return true, nil
}

// ---- mock ItemService ----

type mockItemService struct {
	mu    sync.Mutex
	items map[int64]domain.Item
	stock map[int64]int

	deductErr    error
	restoreErr   error
	deductCalls  int
	restoreCalls int
}

func newMockItemService() *mockItemService {
	return &mockItemService{
		items: map[int64]domain.Item{
			1: {ID: 1, Price: 1000, Name: "item-1", Stock: 100},
			2: {ID: 2, Price: 500, Name: "item-2", Stock: 50},
		},
		stock: map[int64]int{1: 100, 2: 50},
	}
}

func (m *mockItemService) QueryItemsByIds(ctx context.Context, ids []int64) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []domain.Item
	for _, id := range ids {
		if item, ok := m.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockItemService) DeductStock(ctx context.Context, entries []domain.StockEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deductCalls++
	if m.deductErr != nil {
		return m.deductErr
	}
	for _, e := range entries {
		m.stock[e.ItemID] -= e.Num
	}
	return nil
}

func (m *mockItemService) RestoreStock(ctx context.Context, entries []domain.StockEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoreCalls++
	if m.restoreErr != nil {
		return m.restoreErr
	}
	for _, e := range entries {
		m.stock[e.ItemID] += e.Num
	}
	return nil
}

// ---- mock CartService / DelayScheduler ----

type mockCartService struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockCartService) DeleteCartItems(ctx context.Context, userID int64, itemIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err
}

type mockScheduler struct {
	mu          sync.Mutex
	err         error
	calls       int
	lastOrderID int64
}

func (m *mockScheduler) SchedulePaymentTimeout(ctx context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastOrderID = orderID
	return m.err
}

// ---- helpers ----

type testEnv struct {
	svc       *TradeApplicationService
	repo      *mockRepo
	items     *mockItemService
	cart      *mockCartService
	scheduler *mockScheduler
}

func newTestEnv() *testEnv {
	repo := newMockRepo()
	items := newMockItemService()
	cart := &mockCartService{}
	scheduler := &mockScheduler{}
	svc := NewTradeApplicationService(repo, items, cart, scheduler, otel.Tracer("test"))
	return &testEnv{svc: svc, repo: repo, items: items, cart: cart, scheduler: scheduler}
}

func testForm() *domain.OrderForm {
	return &domain.OrderForm{
		UserID:      7,
		PaymentType: 1,
		Details: []domain.OrderLineForm{
			{ItemID: 1, Num: 2},
			{ItemID: 2, Num: 1},
		},
	}
}

// ---- creation path ----

func TestCreateOrder_Success(t *testing.T) {
	env := newTestEnv()

	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if orderID == 0 {
		t.Fatal("expected non-zero order id")
	}

	order, err := env.repo.FindByID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if order.Status != domain.StatusPendingPayment {
		t.Errorf("expected pending payment, got %d", order.Status)
	}
	if order.TotalFee != 2500 {
		t.Errorf("expected total fee 2500, got %d", order.TotalFee)
	}

	if env.items.deductCalls != 1 {
		t.Errorf("expected 1 deduct call, got %d", env.items.deductCalls)
	}
	if env.items.stock[1] != 98 || env.items.stock[2] != 49 {
		t.Errorf("stock not deducted: %v", env.items.stock)
	}
	if env.cart.calls != 1 {
		t.Errorf("expected cart clearance, got %d calls", env.cart.calls)
	}
	if env.scheduler.calls != 1 || env.scheduler.lastOrderID != orderID {
		t.Errorf("expected timeout scheduled for order %d, got %d calls for order %d",
			orderID, env.scheduler.calls, env.scheduler.lastOrderID)
	}
}

func TestCreateOrder_MissingItem(t *testing.T) {
	env := newTestEnv()
	delete(env.items.items, 2)

	_, err := env.svc.CreateOrder(context.Background(), testForm())
	if !errors.Is(err, domain.ErrItemsNotFound) {
		t.Fatalf("expected ErrItemsNotFound, got %v", err)
	}
	if len(env.repo.orders) != 0 {
		t.Error("no order row should exist after a failed creation")
	}
	if env.items.deductCalls != 0 {
		t.Error("deduct must not be called when items are missing")
	}
}

func TestCreateOrder_ValidationRejectedBeforeAnyCall(t *testing.T) {
	env := newTestEnv()
	form := testForm()
	form.Details = append(form.Details, domain.OrderLineForm{ItemID: 1, Num: 1})

	_, err := env.svc.CreateOrder(context.Background(), form)
	if !errors.Is(err, domain.ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if env.cart.calls != 0 || env.items.deductCalls != 0 || len(env.repo.orders) != 0 {
		t.Error("validation failure must happen before any write or remote call")
	}
}

func TestCreateOrder_DeductFailureRollsBackOrder(t *testing.T) {
	env := newTestEnv()
	env.items.deductErr = port.ErrStockInsufficient

	_, err := env.svc.CreateOrder(context.Background(), testForm())
	if !errors.Is(err, port.ErrStockInsufficient) {
		t.Fatalf("expected stock error, got %v", err)
	}

	// 补偿后不能有任何残留的订单行
	if len(env.repo.orders) != 0 {
		t.Errorf("expected no order rows after compensation, found %d", len(env.repo.orders))
	}
	if len(env.repo.deleted) != 1 {
		t.Errorf("expected one compensating delete, got %d", len(env.repo.deleted))
	}
	// 购物车清理发生在扣减之前且不注册补偿：下单失败后购物车保持
	// 已清理状态，用户重新加购，而不是回滚清理
	if env.cart.calls != 1 {
		t.Errorf("expected cart clearance to have run once and stay, got %d calls", env.cart.calls)
	}
	if env.scheduler.calls != 0 {
		t.Error("timeout must not be scheduled for a failed creation")
	}
}

func TestCreateOrder_UnavailableInventoryIsFatal(t *testing.T) {
	env := newTestEnv()
	env.items.deductErr = port.ErrItemServiceUnavailable

	_, err := env.svc.CreateOrder(context.Background(), testForm())
	if !errors.Is(err, port.ErrItemServiceUnavailable) {
		t.Fatalf("expected unavailability error, got %v", err)
	}
	if len(env.repo.orders) != 0 {
		t.Error("expected no order rows after compensation")
	}
}

func TestCreateOrder_CartFailureIsNotFatal(t *testing.T) {
	env := newTestEnv()
	env.cart.err = errors.New("cart service down")

	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("cart failure must not abort creation: %v", err)
	}
	if _, err := env.repo.FindByID(context.Background(), orderID); err != nil {
		t.Error("order should be committed despite cart failure")
	}
	if env.items.deductCalls != 1 {
		t.Error("stock should still be deducted")
	}
}

func TestCreateOrder_SchedulerFailureIsNotFatal(t *testing.T) {
	env := newTestEnv()
	env.scheduler.err = errors.New("broker unreachable")

	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("scheduler failure must not abort creation: %v", err)
	}
	if _, err := env.repo.FindByID(context.Background(), orderID); err != nil {
		t.Error("order should be committed despite scheduler failure")
	}
}

// ---- cancellation / compensation path ----

func TestCancelOrder_RestoresStockExactlyOnce(t *testing.T) {
	env := newTestEnv()
	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := env.svc.CancelOrder(context.Background(), orderID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	order, _ := env.repo.FindByID(context.Background(), orderID)
	if order.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled status, got %d", order.Status)
	}
	if env.items.restoreCalls != 1 {
		t.Errorf("expected exactly 1 restore call, got %d", env.items.restoreCalls)
	}
	// 扣减 + 恢复的净库存变化必须为零
	if env.items.stock[1] != 100 || env.items.stock[2] != 50 {
		t.Errorf("stock not conserved after cancel: %v", env.items.stock)
	}
}

func TestCancelOrder_IdempotentUnderDuplicateSignals(t *testing.T) {
	env := newTestEnv()
	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	for i := 0; i < 5; i++ {
		if err := env.svc.CancelOrder(context.Background(), orderID); err != nil {
			t.Fatalf("cancel #%d failed: %v", i+1, err)
		}
	}

	if env.items.restoreCalls != 1 {
		t.Errorf("restore must be called at most once, got %d", env.items.restoreCalls)
	}
	if env.items.stock[1] != 100 || env.items.stock[2] != 50 {
		t.Errorf("stock over-restored: %v", env.items.stock)
	}
}

func TestCancelOrder_NoOpOnPaidOrder(t *testing.T) {
	env := newTestEnv()
	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := env.svc.MarkOrderPaySuccess(context.Background(), orderID, time.Now()); err != nil {
		t.Fatalf("pay failed: %v", err)
	}

	// 已支付订单上的延迟信号必须是无副作用的成功
	if err := env.svc.CancelOrder(context.Background(), orderID); err != nil {
		t.Fatalf("cancel on paid order must be a successful no-op: %v", err)
	}

	order, _ := env.repo.FindByID(context.Background(), orderID)
	if order.Status != domain.StatusPaid {
		t.Errorf("paid order must stay paid, got status %d", order.Status)
	}
	if env.items.restoreCalls != 0 {
		t.Errorf("restore must not be called for a paid order, got %d calls", env.items.restoreCalls)
	}
}

func TestCancelOrder_RestoreFailurePropagates(t *testing.T) {
	env := newTestEnv()
	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	env.items.restoreErr = port.ErrItemServiceUnavailable

	err = env.svc.CancelOrder(context.Background(), orderID)
	if !errors.Is(err, port.ErrItemServiceUnavailable) {
		t.Fatalf("restore failure must propagate, got %v", err)
	}

	// 状态已翻转，重投后的再次取消是 no-op，但错误不能被吞掉
	order, _ := env.repo.FindByID(context.Background(), orderID)
	if order.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled status, got %d", order.Status)
	}
}

func TestProcessTimeoutCheck_CancelsUnpaidOrder(t *testing.T) {
	env := newTestEnv()
	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	event := &domain.OrderTimeoutCheckEvent{EventID: "evt-1", OrderID: orderID, CreationTime: time.Now()}
	if err := env.svc.ProcessTimeoutCheck(context.Background(), event); err != nil {
		t.Fatalf("timeout check failed: %v", err)
	}

	order, _ := env.repo.FindByID(context.Background(), orderID)
	if order.Status != domain.StatusCancelled {
		t.Errorf("expected order cancelled by timeout, got status %d", order.Status)
	}
	if env.items.restoreCalls != 1 {
		t.Errorf("expected stock restored exactly once, got %d", env.items.restoreCalls)
	}
}

// ---- racing pay vs cancel ----

func TestConcurrentPayAndCancel_ExactlyOneWinner(t *testing.T) {
	for i := 0; i < 50; i++ {
		env := newTestEnv()
		orderID, err := env.svc.CreateOrder(context.Background(), testForm())
		if err != nil {
			t.Fatalf("setup: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = env.svc.CancelOrder(context.Background(), orderID)
		}()
		go func() {
			defer wg.Done()
			_ = env.svc.MarkOrderPaySuccess(context.Background(), orderID, time.Now())
		}()
		wg.Wait()

		order, _ := env.repo.FindByID(context.Background(), orderID)
		switch order.Status {
		case domain.StatusPaid:
			if env.items.restoreCalls != 0 {
				t.Fatalf("round %d: payment won but stock was restored", i)
			}
		case domain.StatusCancelled:
			if env.items.restoreCalls != 1 {
				t.Fatalf("round %d: cancel won but restore called %d times", i, env.items.restoreCalls)
			}
		default:
			t.Fatalf("round %d: order left in non-terminal status %d", i, order.Status)
		}
	}
}

func TestMarkOrderPaySuccess_SetsPayTime(t *testing.T) {
	env := newTestEnv()
	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	payTime := time.Now()
	if err := env.svc.MarkOrderPaySuccess(context.Background(), orderID, payTime); err != nil {
		t.Fatalf("pay failed: %v", err)
	}

	order, _ := env.repo.FindByID(context.Background(), orderID)
	if order.Status != domain.StatusPaid {
		t.Errorf("expected paid status, got %d", order.Status)
	}
	if order.PayTime == nil || !order.PayTime.Equal(payTime) {
		t.Errorf("expected pay time %v, got %v", payTime, order.PayTime)
	}

	// 重复的支付确认是无害的空操作
	if err := env.svc.MarkOrderPaySuccess(context.Background(), orderID, time.Now()); err != nil {
		t.Fatalf("duplicate pay confirmation must be a no-op: %v", err)
	}
	order, _ = env.repo.FindByID(context.Background(), orderID)
	if !order.PayTime.Equal(payTime) {
		t.Error("duplicate confirmation must not overwrite pay time")
	}
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv()
	orderID, err := env.svc.CreateOrder(context.Background(), testForm())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	resp, err := env.svc.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if resp.OrderID != orderID || resp.TotalFee != 2500 || len(resp.Details) != 2 {
		t.Errorf("unexpected order response: %+v", resp)
	}

	if _, err := env.svc.GetOrder(context.Background(), 999999); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}
