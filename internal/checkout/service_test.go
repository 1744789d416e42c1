package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/cart"
	"github.com/ariefcatur/telava-pos/internal/catalog"
	"github.com/ariefcatur/telava-pos/internal/notify"
	"github.com/ariefcatur/telava-pos/internal/sales"
	"github.com/shopspring/decimal"
)

type fakeBackend struct {
	mu      sync.Mutex
	creates []backend.CreateTransactionRequest
	renders []backend.ReceiptRequest
	lookups int

	createFn   func(ctx context.Context, req backend.CreateTransactionRequest) (backend.CreatedTransaction, error)
	renderHook func(ctx context.Context)
	renderErr  error
	trx        map[string]backend.Transaction
}

func (f *fakeBackend) CreateTransaction(ctx context.Context, req backend.CreateTransactionRequest) (backend.CreatedTransaction, error) {
	f.mu.Lock()
	f.creates = append(f.creates, req)
	fn := f.createFn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	res := backend.CreatedTransaction{Success: true, TransactionCode: "TRX-1"}
	if req.Method.Redirects() {
		res.PaymentURL = "https://pay.example/inv/TRX-1"
	}
	return res, nil
}

func (f *fakeBackend) RenderReceipt(ctx context.Context, req backend.ReceiptRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, req)
	if f.renderHook != nil {
		f.renderHook(ctx)
	}
	if f.renderErr != nil {
		return "", f.renderErr
	}
	return "<html>" + req.TransactionCode + "</html>", nil
}

func (f *fakeBackend) TransactionByCode(ctx context.Context, code string) (backend.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	t, ok := f.trx[code]
	if !ok {
		return backend.Transaction{}, &backend.APIError{Status: 404, Message: "not found"}
	}
	return t, nil
}

func (f *fakeBackend) counts() (creates, renders int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates), len(f.renders)
}

type recNotices struct {
	mu  sync.Mutex
	got []notify.Notice
}

func (r *recNotices) Notify(n notify.Notice) {
	r.mu.Lock()
	r.got = append(r.got, n)
	r.mu.Unlock()
}

func (r *recNotices) last() notify.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return notify.Notice{}
	}
	return r.got[len(r.got)-1]
}

type recEvents struct {
	mu    sync.Mutex
	types []string
	loads []sales.SalePayload
}

func (r *recEvents) Emit(_ context.Context, eventType string, p sales.SalePayload) {
	r.mu.Lock()
	r.types = append(r.types, eventType)
	r.loads = append(r.loads, p)
	r.mu.Unlock()
}

var (
	kopi = catalog.Product{ID: 1, Name: "Kopi", Price: decimal.NewFromInt(10000), Stock: 5}
	roti = catalog.Product{ID: 2, Name: "Roti", Price: decimal.NewFromInt(5000), Stock: 5}
)

func fixture(t *testing.T) (*Service, *fakeBackend, *cart.Ledger, *recNotices, *recEvents) {
	t.Helper()
	fb := &fakeBackend{trx: map[string]backend.Transaction{}}
	l := cart.New()
	n := &recNotices{}
	ev := &recEvents{}
	svc := New(Config{
		Backend:   fb,
		Cart:      l,
		Notices:   n,
		Events:    ev,
		Seller:    func() string { return "Sari" },
		ReturnURL: "http://localhost:8081/payments/{code}/return",
	})
	return svc, fb, l, n, ev
}

func fill(t *testing.T, l *cart.Ledger) {
	t.Helper()
	for _, p := range []catalog.Product{kopi, kopi, roti} {
		if _, err := l.Add(p); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
}

func TestCheckout_EmptyCartMakesNoCalls(t *testing.T) {
	svc, fb, _, n, _ := fixture(t)
	_, err := svc.Checkout(context.Background(), backend.MethodCash, "")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if c, r := fb.counts(); c != 0 || r != 0 {
		t.Fatalf("network calls made: creates=%d renders=%d", c, r)
	}
	if n.last().Title != "Keranjang Kosong" {
		t.Fatalf("unexpected notice %+v", n.last())
	}
}

func TestCheckout_Cash(t *testing.T) {
	svc, fb, l, _, ev := fixture(t)
	fill(t, l)

	res, err := svc.Checkout(context.Background(), backend.MethodCash, "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	c, r := fb.counts()
	if c != 1 || r != 1 {
		t.Fatalf("want 1 create + 1 render, got %d + %d", c, r)
	}
	rr := fb.renders[0]
	if rr.TransactionCode != res.Code || res.Code != "TRX-1" {
		t.Fatalf("render used code %q, checkout returned %q", rr.TransactionCode, res.Code)
	}
	if !rr.Subtotal.Equal(decimal.NewFromInt(25000)) || !rr.Tax.Equal(decimal.NewFromInt(3000)) || !rr.Total.Equal(decimal.NewFromInt(28000)) {
		t.Fatalf("unexpected totals %s %s %s", rr.Subtotal, rr.Tax, rr.Total)
	}
	if rr.Seller != "Sari" {
		t.Fatalf("seller fallback not applied: %q", rr.Seller)
	}
	if l.Len() != 0 {
		t.Fatal("cart should be empty after cash checkout")
	}
	if res.Receipt == nil || res.Receipt.HTML != "<html>TRX-1</html>" {
		t.Fatalf("receipt not returned: %+v", res.Receipt)
	}
	if last, ok := svc.LastReceipt(); !ok || last.Code != "TRX-1" {
		t.Fatal("last receipt not kept")
	}
	req := fb.creates[0]
	if req.Method != backend.MethodCash || len(req.Items) != 2 || req.Items[0].Quantity != 2 || req.Items[0].Name != "Kopi" {
		t.Fatalf("unexpected create request %+v", req)
	}
	if len(ev.types) != 1 || ev.types[0] != sales.EventSaleCreated || ev.loads[0].Status != "PAID" {
		t.Fatalf("unexpected events %v %+v", ev.types, ev.loads)
	}
}

func TestCheckout_TransferKeepsCart(t *testing.T) {
	svc, fb, l, _, ev := fixture(t)
	fill(t, l)

	res, err := svc.Checkout(context.Background(), backend.MethodTransfer, "Budi")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, r := fb.counts(); r != 0 {
		t.Fatalf("render called %d times for transfer", r)
	}
	if l.Len() != 2 {
		t.Fatalf("cart changed: %d lines", l.Len())
	}
	if res.PaymentURL == "" || res.ReturnURL != "http://localhost:8081/payments/TRX-1/return" {
		t.Fatalf("unexpected redirect %+v", res)
	}
	if ev.loads[0].Status != "PENDING" || ev.loads[0].Seller != "Budi" {
		t.Fatalf("unexpected event payload %+v", ev.loads[0])
	}
}

func TestCheckout_ReceiptFailureStillCommits(t *testing.T) {
	svc, fb, l, n, _ := fixture(t)
	fill(t, l)
	fb.renderErr = backend.ErrNoReceipt

	res, err := svc.Checkout(context.Background(), backend.MethodCash, "")
	if !errors.Is(err, ErrReceiptFailed) || !errors.Is(err, backend.ErrNoReceipt) {
		t.Fatalf("expected receipt failure, got %v", err)
	}
	if res.Code != "TRX-1" || res.Receipt != nil {
		t.Fatalf("committed sale not reported: %+v", res)
	}
	if l.Len() != 0 {
		t.Fatal("sale is committed, cart should be cleared")
	}
	if n.last().Message != "Struk tidak ditemukan" {
		t.Fatalf("unexpected notice %+v", n.last())
	}
}

func TestCheckout_CreateFailureLeavesCart(t *testing.T) {
	svc, fb, l, n, ev := fixture(t)
	fill(t, l)
	fb.createFn = func(context.Context, backend.CreateTransactionRequest) (backend.CreatedTransaction, error) {
		return backend.CreatedTransaction{}, &backend.APIError{
			Status: 422,
			Fields: map[string][]string{"items.0.quantity": {"Stok tidak cukup"}},
		}
	}
	_, err := svc.Checkout(context.Background(), backend.MethodCash, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, r := fb.counts(); r != 0 {
		t.Fatal("render must not follow a failed create")
	}
	if l.Len() != 2 || l.ItemCount() != 3 {
		t.Fatal("cart mutated on failure")
	}
	msg := n.last().Message
	if !strings.HasPrefix(msg, "Gagal memproses transaksi") || !strings.Contains(msg, "items.0.quantity: Stok tidak cukup") {
		t.Fatalf("unexpected notice %q", msg)
	}
	if len(ev.types) != 0 {
		t.Fatal("no event for a failed sale")
	}
}

func TestCheckout_InFlightGuard(t *testing.T) {
	svc, fb, l, _, _ := fixture(t)
	fill(t, l)
	entered := make(chan struct{})
	release := make(chan struct{})
	fb.createFn = func(context.Context, backend.CreateTransactionRequest) (backend.CreatedTransaction, error) {
		close(entered)
		<-release
		return backend.CreatedTransaction{Success: true, TransactionCode: "TRX-1"}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Checkout(context.Background(), backend.MethodCash, "")
		done <- err
	}()
	<-entered
	if !svc.InFlight() {
		t.Fatal("expected in-flight")
	}
	if _, err := svc.Checkout(context.Background(), backend.MethodCash, ""); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if c, _ := fb.counts(); c != 1 {
		t.Fatalf("creates = %d", c)
	}
	if svc.InFlight() {
		t.Fatal("guard not released")
	}
}

func TestCheckout_CallerGoneBeforeCreateDiscardsResult(t *testing.T) {
	svc, fb, l, n, _ := fixture(t)
	fill(t, l)
	ctx, cancel := context.WithCancel(context.Background())
	fb.createFn = func(ctx context.Context, _ backend.CreateTransactionRequest) (backend.CreatedTransaction, error) {
		cancel()
		return backend.CreatedTransaction{}, ctx.Err()
	}
	_, err := svc.Checkout(ctx, backend.MethodCash, "")
	if !errors.Is(err, ErrAbandoned) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected abandoned, got %v", err)
	}
	if _, r := fb.counts(); r != 0 {
		t.Fatal("render after the caller left")
	}
	if l.Len() != 2 {
		t.Fatal("cart mutated after the caller left")
	}
	if n.last().Level == notify.LevelError {
		t.Fatal("no failure notice for a caller that left")
	}
}

func TestCheckout_StoredSaleCompletesAfterDeadline(t *testing.T) {
	svc, fb, l, _, ev := fixture(t)
	fill(t, l)
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	fb.createFn = func(context.Context, backend.CreateTransactionRequest) (backend.CreatedTransaction, error) {
		// the deadline passes while the backend stores the sale
		cancel()
		return backend.CreatedTransaction{Success: true, TransactionCode: "TRX-1"}, nil
	}
	var renderCtxErr error
	fb.renderHook = func(ctx context.Context) { renderCtxErr = ctx.Err() }

	res, err := svc.Checkout(ctx, backend.MethodCash, "")
	if err != nil {
		t.Fatalf("stored sale must not fail: %v", err)
	}
	if res.Code != "TRX-1" || res.Receipt == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if renderCtxErr != nil {
		t.Fatalf("receipt rendered on a cancelled context: %v", renderCtxErr)
	}
	if l.Len() != 0 {
		t.Fatal("cart must be cleared once the sale is stored")
	}
	if len(ev.types) != 1 || ev.types[0] != sales.EventSaleCreated {
		t.Fatalf("events = %v", ev.types)
	}

	// a retry finds an empty cart instead of submitting the sale twice
	if _, err := svc.Checkout(context.Background(), backend.MethodCash, ""); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("retry: %v", err)
	}
	if c, _ := fb.counts(); c != 1 {
		t.Fatalf("creates = %d", c)
	}
}

func paidTrx(code string) backend.Transaction {
	return backend.Transaction{
		Code:      code,
		Status:    backend.StatusPaid,
		RawStatus: "SUCCES",
		Method:    "qris",
		Total:     decimal.NewFromInt(1), // ignored, totals come from the items
		Items: []backend.Item{
			{Name: "Kopi", Price: decimal.NewFromInt(10000), Quantity: 2},
			{Name: "Roti", Price: decimal.NewFromInt(5000), Quantity: 1},
		},
	}
}

func TestReconcile_PaidIsIdempotent(t *testing.T) {
	svc, fb, l, _, ev := fixture(t)
	fill(t, l)
	fb.trx["TRX-7"] = paidTrx("TRX-7")

	first, err := svc.Reconcile(context.Background(), "TRX-7")
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	if first.Outcome != OutcomePaid || first.Replayed || first.Receipt == nil {
		t.Fatalf("unexpected first result %+v", first)
	}
	if !first.Receipt.Totals.Total.Equal(decimal.NewFromInt(28000)) {
		t.Fatalf("totals not recomputed: %s", first.Receipt.Totals.Total)
	}
	if l.Len() != 0 {
		t.Fatal("cart should be empty after paid reconcile")
	}

	second, err := svc.Reconcile(context.Background(), "TRX-7")
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if !second.Replayed || second.Receipt.HTML != first.Receipt.HTML {
		t.Fatalf("second call should replay: %+v", second)
	}
	if _, r := fb.counts(); r != 1 {
		t.Fatalf("render calls = %d, want 1", r)
	}
	if c, _ := fb.counts(); c != 0 {
		t.Fatal("reconcile must never create a transaction")
	}
	if len(ev.types) != 1 || ev.types[0] != sales.EventSaleSettled {
		t.Fatalf("settled event should fire once: %v", ev.types)
	}
}

func TestReconcile_AfterCashReplays(t *testing.T) {
	svc, fb, l, _, _ := fixture(t)
	fill(t, l)
	if _, err := svc.Checkout(context.Background(), backend.MethodCash, ""); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	fb.trx["TRX-1"] = paidTrx("TRX-1")
	rec, err := svc.Reconcile(context.Background(), "TRX-1")
	if err != nil || !rec.Replayed {
		t.Fatalf("expected replay, got %+v %v", rec, err)
	}
	if _, r := fb.counts(); r != 1 {
		t.Fatalf("render calls = %d", r)
	}
}

func TestReconcile_NotFound(t *testing.T) {
	svc, fb, _, n, _ := fixture(t)
	rec, err := svc.Reconcile(context.Background(), "TRX-404")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if rec.Outcome != OutcomeNotFound {
		t.Fatalf("outcome %s", rec.Outcome)
	}
	if _, r := fb.counts(); r != 0 {
		t.Fatal("no render for a missing transaction")
	}
	if n.last().Message != "Transaksi tidak ditemukan" {
		t.Fatalf("notice %+v", n.last())
	}
}

func TestReconcile_NonPaidStatuses(t *testing.T) {
	cases := []struct {
		raw     string
		outcome Outcome
		msg     string
	}{
		{"expired", OutcomeExpired, "Transaksi sudah kadaluarsa."},
		{"PENDING", OutcomePending, "Pembayaran masih dalam proses."},
		{"refunded", OutcomeOther, "Status transaksi: refunded"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			svc, fb, l, _, _ := fixture(t)
			fill(t, l)
			fb.trx["TRX-2"] = backend.Transaction{Code: "TRX-2", RawStatus: tc.raw, Status: backend.ParseStatus(tc.raw)}
			rec, err := svc.Reconcile(context.Background(), "TRX-2")
			if err != nil {
				t.Fatalf("reconcile: %v", err)
			}
			if rec.Outcome != tc.outcome || rec.Message != tc.msg {
				t.Fatalf("got %+v", rec)
			}
			if _, r := fb.counts(); r != 0 {
				t.Fatal("no render for unpaid transactions")
			}
			if l.Len() != 2 {
				t.Fatal("cart must stay for unpaid transactions")
			}
		})
	}
}

func TestReconcile_PaidWithoutItems(t *testing.T) {
	svc, fb, l, _, _ := fixture(t)
	fill(t, l)
	trx := paidTrx("TRX-3")
	trx.Items = nil
	fb.trx["TRX-3"] = trx
	if _, err := svc.Reconcile(context.Background(), "TRX-3"); !errors.Is(err, ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
	if l.Len() != 2 {
		t.Fatal("cart cleared without a receipt")
	}
}

func TestReconcile_ConcurrentCallsShareOneRender(t *testing.T) {
	svc, fb, _, _, _ := fixture(t)
	fb.trx["TRX-9"] = paidTrx("TRX-9")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reconcile(context.Background(), "TRX-9"); err != nil {
				t.Errorf("reconcile: %v", err)
			}
		}()
	}
	wg.Wait()
	if _, r := fb.counts(); r != 1 {
		t.Fatalf("render calls = %d, want 1", r)
	}
}

func TestReconcile_MissingCode(t *testing.T) {
	svc, _, _, _, _ := fixture(t)
	if _, err := svc.Reconcile(context.Background(), "  "); !errors.Is(err, ErrMissingCode) {
		t.Fatalf("got %v", err)
	}
}

func TestPaymentReturn(t *testing.T) {
	svc := New(Config{Cart: cart.New(), ReturnURL: "https://pos.local/kasir?tab=1"})
	got := svc.paymentReturn("TRX 1")
	if got != "https://pos.local/kasir?tab=1&transaction_code=TRX+1" {
		t.Fatalf("got %s", got)
	}
	svc = New(Config{Cart: cart.New()})
	if svc.paymentReturn("x") != "" {
		t.Fatal("no return url configured")
	}
}

func TestReceipt_Slip(t *testing.T) {
	r := Receipt{
		Code:     "TRX-1",
		Seller:   "Sari",
		Items:    []backend.ReceiptItem{{Name: "Kopi", Price: decimal.NewFromInt(10000), Quantity: 2}},
		Totals:   cart.FromSubtotal(decimal.NewFromInt(20000)),
		IssuedAt: time.Now(),
	}
	s := r.Slip()
	if len(s.Lines) != 1 || s.Lines[0].Qty != 2 || !s.Total.Equal(decimal.NewFromInt(22400)) {
		t.Fatalf("unexpected slip %+v", s)
	}
}

func TestReconcile_CancelledCallerDoesNotAbortOthers(t *testing.T) {
	svc, fb, l, _, _ := fixture(t)
	fill(t, l)
	fb.trx["TRX-7"] = paidTrx("TRX-7")

	entered := make(chan struct{})
	release := make(chan struct{})
	fb.renderHook = func(context.Context) {
		close(entered)
		<-release
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := svc.Reconcile(ctx, "TRX-7")
		first <- err
	}()
	<-entered

	second := make(chan Reconciliation, 1)
	go func() {
		rec, err := svc.Reconcile(context.Background(), "TRX-7")
		if err != nil {
			t.Errorf("second caller: %v", err)
		}
		second <- rec
	}()
	// give the second caller time to join the in-flight call
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)

	if err := <-first; !errors.Is(err, ErrAbandoned) {
		t.Fatalf("first caller should see its own cancellation, got %v", err)
	}
	if rec := <-second; rec.Outcome != OutcomePaid || rec.Receipt == nil {
		t.Fatalf("second caller: %+v", rec)
	}
	if _, r := fb.counts(); r != 1 {
		t.Fatalf("render calls = %d, want 1", r)
	}
	if l.Len() != 0 {
		t.Fatal("paid reconcile should clear the cart")
	}
}
