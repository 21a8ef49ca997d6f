package worker

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/service/order"
)

// fakeOrderRepo implements the parts of order.Repository the webhook
// paths touch; everything else panics via the embedded nil interface.
type fakeOrderRepo struct {
	order.Repository

	purchases   map[string]*domain.Purchase
	orders      map[string]*domain.PrintOrder
	transitions []string
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		purchases: make(map[string]*domain.Purchase),
		orders:    make(map[string]*domain.PrintOrder),
	}
}

func (r *fakeOrderRepo) ListPurchasesByIntent(_ context.Context, intentID string) ([]domain.Purchase, error) {
	var out []domain.Purchase
	for _, p := range r.purchases {
		if p.PaymentIntentID == intentID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) SetPurchaseStatus(_ context.Context, id string, status domain.PurchaseStatus) error {
	p, ok := r.purchases[id]
	if !ok {
		return order.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *fakeOrderRepo) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeOrderRepo) GetPrintOrderByPurchase(_ context.Context, purchaseID string) (*domain.PrintOrder, error) {
	for _, o := range r.orders {
		if o.PurchaseID == purchaseID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *fakeOrderRepo) GetPrintOrderByProvider(_ context.Context, providerOrderID string) (*domain.PrintOrder, error) {
	for _, o := range r.orders {
		if o.ProviderOrderID == providerOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (r *fakeOrderRepo) GetPrintOrder(_ context.Context, id string) (*domain.PrintOrder, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) Transition(_ context.Context, id string, from, to domain.PrintOrderStatus, reason, actor string) error {
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != from {
		return order.ErrInvalidTransition
	}
	o.Status = to
	r.transitions = append(r.transitions, string(from)+"->"+string(to))
	return nil
}

func (r *fakeOrderRepo) SetTracking(_ context.Context, id, trackingNumber, trackingURL, carrier string) error {
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.TrackingNumber = trackingNumber
	o.TrackingURL = trackingURL
	o.Carrier = carrier
	return nil
}

type fakePayments struct {
	refunded  []string
	cancelled []string
}

func (f *fakePayments) CreateIntent(context.Context, int64, string, map[string]string) (string, string, error) {
	return "pi_new", "secret", nil
}

func (f *fakePayments) IntentStatus(context.Context, string) (string, error) {
	return "requires_payment_method", nil
}

func (f *fakePayments) CancelIntent(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakePayments) Refund(_ context.Context, id string) error {
	f.refunded = append(f.refunded, id)
	return nil
}

type noopMailer struct{}

func (noopMailer) SendOrderConfirmation(context.Context, string, string, int64, string) error {
	return nil
}

func (noopMailer) SendShippingNotice(context.Context, string, string, string, string) error {
	return nil
}

func eventRows(id int64, provider, eventType, payload string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "provider", "event_type", "payload"}).
		AddRow(id, provider, eventType, []byte(payload))
}

func TestProcessBatchAppliesStripeSuccess(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := newFakeOrderRepo()
	repo.purchases["pur-1"] = &domain.Purchase{
		ID: "pur-1", UserID: "alice", StorybookID: "book-1",
		Type: domain.ProductPrint, Status: domain.PurchasePending,
		PaymentIntentID: "pi_1", OrderReference: "ORDER-AAAA0001",
	}
	repo.orders["po-1"] = &domain.PrintOrder{
		ID: "po-1", PurchaseID: "pur-1", Status: domain.PrintOrderCreating,
	}
	orders := order.NewService(repo, &fakePayments{}, noopMailer{})
	p := NewWebhookProcessor(db, orders, time.Second)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","metadata":{"email":"alice@example.com"}}}}`
	mock.ExpectQuery(`SELECT id, provider, event_type, payload`).
		WillReturnRows(eventRows(1, "stripe", "payment_intent.succeeded", payload))
	mock.ExpectExec(`UPDATE webhook_events SET processed_at`).
		WithArgs(sqlmock.AnyArg(), "", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := p.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if n != 1 {
		t.Fatalf("processed %d events, want 1", n)
	}
	if got := repo.purchases["pur-1"].Status; got != domain.PurchaseCompleted {
		t.Errorf("purchase status = %s, want completed", got)
	}
	if got := repo.orders["po-1"].Status; got != domain.PrintOrderPending {
		t.Errorf("print order status = %s, want pending", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProcessBatchAppliesShipment(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := newFakeOrderRepo()
	repo.orders["po-1"] = &domain.PrintOrder{
		ID: "po-1", ProviderOrderID: "ord_prov_1", Status: domain.PrintOrderInProgress,
	}
	orders := order.NewService(repo, &fakePayments{}, noopMailer{})
	p := NewWebhookProcessor(db, orders, time.Second)

	payload := `{"orderId":"ord_prov_1","stage":"Shipped","shipment":{"carrier":"USPS","trackingNumber":"9400","trackingUrl":"https://t.example/9400"}}`
	mock.ExpectQuery(`SELECT id, provider, event_type, payload`).
		WillReturnRows(eventRows(2, "prodigi", "Shipped", payload))
	mock.ExpectExec(`UPDATE webhook_events SET processed_at`).
		WithArgs(sqlmock.AnyArg(), "", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := p.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	o := repo.orders["po-1"]
	if o.Status != domain.PrintOrderShipped {
		t.Errorf("status = %s, want shipped", o.Status)
	}
	if o.TrackingNumber != "9400" || o.Carrier != "USPS" {
		t.Errorf("tracking not recorded: %+v", o)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProcessBatchRecordsFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	orders := order.NewService(newFakeOrderRepo(), &fakePayments{}, noopMailer{})
	p := NewWebhookProcessor(db, orders, time.Second)

	mock.ExpectQuery(`SELECT id, provider, event_type, payload`).
		WillReturnRows(eventRows(3, "mystery", "boom", `{}`))
	// The error text must land in the row.
	mock.ExpectExec(`UPDATE webhook_events SET processed_at`).
		WithArgs(sqlmock.AnyArg(), `unknown provider "mystery"`, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if _, err := p.ProcessBatch(context.Background()); err != nil {
		t.Fatalf("ProcessBatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStageInsertsEvent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPrepare(`INSERT INTO webhook_events`)
	mock.ExpectExec(`INSERT INTO webhook_events`).
		WithArgs("stripe", "payment_intent.succeeded", []byte(`{}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	r, err := NewWebhookReceiver(db)
	if err != nil {
		t.Fatalf("NewWebhookReceiver: %v", err)
	}
	if err := r.Stage(context.Background(), "stripe", "payment_intent.succeeded", []byte(`{}`)); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if r.Staged() != 1 {
		t.Errorf("staged = %d, want 1", r.Staged())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
