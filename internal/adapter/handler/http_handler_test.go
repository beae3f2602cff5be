package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/builderhub/checkout/internal/core/domain"
	"github.com/builderhub/checkout/internal/core/service"
)

// fakeDB backs both the item reader and the checkout service in tests.
type fakeDB struct {
	mu     sync.Mutex
	items  map[string]*domain.Item
	orders []domain.Order
	notifs []domain.Notification
}

func newFakeDB(items ...*domain.Item) *fakeDB {
	db := &fakeDB{items: make(map[string]*domain.Item)}
	for _, item := range items {
		db.items[item.ID] = item
	}
	return db
}

func (f *fakeDB) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeDB) ListItems(ctx context.Context) ([]domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []domain.Item
	for _, item := range f.items {
		items = append(items, *item)
	}
	return items, nil
}

func (f *fakeDB) CreateItem(ctx context.Context, item *domain.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeDB) DecrementStock(ctx context.Context, itemID string, quantity int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok || item.Stock < quantity {
		return false, nil
	}
	item.Stock -= quantity
	return true, nil
}

func (f *fakeDB) IncrementStock(ctx context.Context, itemID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[itemID]; ok {
		item.Stock += quantity
	}
	return nil
}

func (f *fakeDB) CreateOrder(ctx context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeDB) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.ID == orderID {
			copied := order
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) CreateNotification(ctx context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifs = append(f.notifs, n)
	return nil
}

func (f *fakeDB) ListNotifications(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.notifs {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeDB) MarkNotificationRead(ctx context.Context, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifs {
		if f.notifs[i].ID == notificationID {
			f.notifs[i].Read = true
			return nil
		}
	}
	return errNotFound
}

func (f *fakeDB) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return nil, nil
}

var errNotFound = errors.New("not found")

type fakeCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (f *fakeCache) SetIdempotency(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = make(map[string]bool)
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeCache) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return nil, nil
}
func (f *fakeCache) SetItem(ctx context.Context, item *domain.Item) error { return nil }

func (f *fakeCache) InvalidateItem(ctx context.Context, itemID string) error { return nil }

func newTestServer(t *testing.T, db *fakeDB) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	notifier := service.NewNotifier(db, nil, 16, logger)
	notifier.Start(1)
	t.Cleanup(notifier.Close)

	checkout := service.NewCheckoutService(db, &fakeCache{}, notifier, service.Config{ConversionRate: 300}, logger)
	h := NewHTTPHandler(checkout, db, db, logger)

	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func cementItem() *domain.Item {
	return &domain.Item{
		ID:        "item-1",
		Name:      "Cement Bag 50kg",
		Price:     1000,
		Stock:     3,
		OwnerID:   "seller-1",
		CreatedAt: time.Now(),
	}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func checkoutBody(method string) map[string]interface{} {
	return map[string]interface{}{
		"item_id":        "item-1",
		"buyer_id":       "buyer-1",
		"quantity":       2,
		"address":        "12 Main Street, Galle",
		"contact_number": "077-123-4567",
		"payment_method": method,
	}
}

func decodeAttempt(t *testing.T, resp *http.Response) AttemptResponse {
	t.Helper()
	defer resp.Body.Close()
	var out AttemptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestCheckout_CashOnDelivery(t *testing.T) {
	db := newFakeDB(cementItem())
	srv := newTestServer(t, db)

	resp := postJSON(t, srv.URL+"/api/checkout", checkoutBody("cash_on_delivery"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	out := decodeAttempt(t, resp)
	if out.Status != string(service.AttemptSucceeded) {
		t.Errorf("expected succeeded, got %s", out.Status)
	}
	if out.Order == nil || out.Order.TotalPrice != 2000 {
		t.Errorf("expected order with total 2000, got %+v", out.Order)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.items["item-1"].Stock != 1 {
		t.Errorf("expected stock 1, got %d", db.items["item-1"].Stock)
	}
}

func TestCheckout_ValidationError(t *testing.T) {
	srv := newTestServer(t, newFakeDB(cementItem()))

	body := checkoutBody("cash_on_delivery")
	body["contact_number"] = "123"

	resp := postJSON(t, srv.URL+"/api/checkout", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCheckout_ItemNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeDB())

	resp := postJSON(t, srv.URL+"/api/checkout", checkoutBody("cash_on_delivery"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCheckout_PayPalFlow(t *testing.T) {
	db := newFakeDB(cementItem())
	srv := newTestServer(t, db)

	resp := postJSON(t, srv.URL+"/api/checkout", checkoutBody("paypal"))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	pending := decodeAttempt(t, resp)
	if pending.Widget == nil || pending.Widget.Amount != "6.67" {
		t.Fatalf("expected widget amount 6.67, got %+v", pending.Widget)
	}

	// Widget reports a successful capture.
	outcomeURL := srv.URL + "/api/checkout/" + pending.AttemptID + "/outcome"
	resp = postJSON(t, outcomeURL, map[string]string{"status": "success", "orderID": "EC-123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	done := decodeAttempt(t, resp)
	if done.Order == nil || done.Order.PaymentRef != "EC-123" {
		t.Errorf("expected order with payment ref EC-123, got %+v", done.Order)
	}

	// A late duplicate is rejected.
	resp = postJSON(t, outcomeURL, map[string]string{"status": "success", "orderID": "EC-123"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate outcome, got %d", resp.StatusCode)
	}

	// Status endpoint reflects the terminal state.
	statusResp, err := http.Get(srv.URL + "/api/checkout/" + pending.AttemptID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	status := decodeAttempt(t, statusResp)
	if status.Status != string(service.AttemptSucceeded) {
		t.Errorf("expected succeeded, got %s", status.Status)
	}
}

func TestWidgetOutcome_Cancel(t *testing.T) {
	db := newFakeDB(cementItem())
	srv := newTestServer(t, db)

	pending := decodeAttempt(t, postJSON(t, srv.URL+"/api/checkout", checkoutBody("paypal")))

	resp := postJSON(t, srv.URL+"/api/checkout/"+pending.AttemptID+"/outcome",
		map[string]string{"status": "cancel"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel is not an error, got %d", resp.StatusCode)
	}
	out := decodeAttempt(t, resp)
	if out.Status != string(service.AttemptCancelled) {
		t.Errorf("expected cancelled, got %s", out.Status)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.orders) != 0 {
		t.Errorf("expected no orders after cancel, got %d", len(db.orders))
	}
	if db.items["item-1"].Stock != 3 {
		t.Errorf("expected untouched stock, got %d", db.items["item-1"].Stock)
	}
}

func TestWidgetOutcome_BadMessage(t *testing.T) {
	srv := newTestServer(t, newFakeDB(cementItem()))

	pending := decodeAttempt(t, postJSON(t, srv.URL+"/api/checkout", checkoutBody("paypal")))

	resp := postJSON(t, srv.URL+"/api/checkout/"+pending.AttemptID+"/outcome",
		map[string]string{"status": "paid"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestWidgetOutcome_UnknownAttempt(t *testing.T) {
	srv := newTestServer(t, newFakeDB(cementItem()))

	resp := postJSON(t, srv.URL+"/api/checkout/nope/outcome", map[string]string{"status": "cancel"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestItems_CreateAndGet(t *testing.T) {
	db := newFakeDB()
	srv := newTestServer(t, db)

	resp := postJSON(t, srv.URL+"/api/items", map[string]interface{}{
		"name":     "Wheelbarrow",
		"price":    4500.0,
		"stock":    7,
		"owner_id": "seller-9",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created domain.Item
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	resp.Body.Close()
	if created.ID == "" {
		t.Fatal("expected generated item id")
	}

	got, err := http.Get(srv.URL + "/api/items/" + created.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", got.StatusCode)
	}
}

func TestOrders_Get(t *testing.T) {
	db := newFakeDB(cementItem())
	srv := newTestServer(t, db)

	placed := decodeAttempt(t, postJSON(t, srv.URL+"/api/checkout", checkoutBody("cash_on_delivery")))
	if placed.Order == nil {
		t.Fatal("expected an order on the attempt")
	}

	resp, err := http.Get(srv.URL + "/api/orders/" + placed.Order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if got.ID != placed.Order.ID || got.TotalPrice != 2000 {
		t.Errorf("order mismatch: %+v", got)
	}

	missing, err := http.Get(srv.URL + "/api/orders/no-such-order")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", missing.StatusCode)
	}
}

func TestNotifications_ListAndMarkRead(t *testing.T) {
	db := newFakeDB(cementItem())
	db.notifs = append(db.notifs, domain.Notification{
		ID: "n-1", RecipientID: "seller-1", Message: "buyer-1 ordered 2 x Cement Bag 50kg",
	})
	srv := newTestServer(t, db)

	resp, err := http.Get(srv.URL + "/api/notifications/seller-1")
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	var notifs []domain.Notification
	if err := json.NewDecoder(resp.Body).Decode(&notifs); err != nil {
		t.Fatalf("decode notifications: %v", err)
	}
	resp.Body.Close()
	if len(notifs) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifs))
	}

	markResp := postJSON(t, srv.URL+"/api/notifications/n-1/read", struct{}{})
	defer markResp.Body.Close()
	if markResp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", markResp.StatusCode)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if !db.notifs[0].Read {
		t.Error("expected notification marked read")
	}
}
