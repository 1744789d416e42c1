package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/cart"
	"github.com/ariefcatur/telava-pos/internal/notify"
	"github.com/ariefcatur/telava-pos/internal/sales"
	"golang.org/x/sync/singleflight"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrBusy      = errors.New("checkout already in progress")
	// ErrAbandoned means the caller went away mid flight; the outcome was
	// dropped and the cart left as it was.
	ErrAbandoned     = errors.New("checkout abandoned")
	ErrReceiptFailed = errors.New("receipt could not be rendered")
	ErrMissingCode   = errors.New("transaction code required")
	ErrNoItems       = errors.New("transaction has no items")
)

// Backend is the slice of the backend client checkout needs.
type Backend interface {
	CreateTransaction(ctx context.Context, req backend.CreateTransactionRequest) (backend.CreatedTransaction, error)
	RenderReceipt(ctx context.Context, req backend.ReceiptRequest) (string, error)
	TransactionByCode(ctx context.Context, code string) (backend.Transaction, error)
}

type Events interface {
	Emit(ctx context.Context, eventType string, p sales.SalePayload)
}

type Config struct {
	Backend  Backend
	Cart     *cart.Ledger
	Receipts ReceiptCache
	Notices  notify.Notifier
	Events   Events
	// Seller names the cashier on receipts rendered during reconciliation.
	Seller func() string
	// ReturnURL is where the payment page sends the customer back. "{code}"
	// is replaced by the transaction code, otherwise it is added as the
	// transaction_code query parameter.
	ReturnURL string
}

// Service drives checkout and payment reconciliation for one cart.
type Service struct {
	backend   Backend
	cart      *cart.Ledger
	receipts  ReceiptCache
	notices   notify.Notifier
	events    Events
	seller    func() string
	returnURL string
	now       func() time.Time

	inflight atomic.Bool
	group    singleflight.Group

	mu   sync.Mutex
	last *Receipt
}

func New(cfg Config) *Service {
	s := &Service{
		backend:   cfg.Backend,
		cart:      cfg.Cart,
		receipts:  cfg.Receipts,
		notices:   cfg.Notices,
		events:    cfg.Events,
		seller:    cfg.Seller,
		returnURL: cfg.ReturnURL,
		now:       time.Now,
	}
	if s.receipts == nil {
		s.receipts = NewMemoryCache()
	}
	if s.notices == nil {
		s.notices = notify.Discard{}
	}
	if s.seller == nil {
		s.seller = func() string { return "Kasir" }
	}
	return s
}

type Result struct {
	Code       string                `json:"transaction_code"`
	Method     backend.PaymentMethod `json:"method"`
	Totals     cart.Totals           `json:"totals"`
	Receipt    *Receipt              `json:"receipt,omitempty"`
	PaymentURL string                `json:"payment_url,omitempty"`
	ReturnURL  string                `json:"return_url,omitempty"`
}

// InFlight reports whether a checkout is running.
func (s *Service) InFlight() bool { return s.inflight.Load() }

// Checkout submits the cart. Cash sales get their receipt rendered and the
// cart cleared; transfer and QRIS sales return the payment page and keep the
// cart until reconciliation sees the payment.
//
// When the receipt fails after the sale was stored, the Result still carries
// the transaction code and the error wraps ErrReceiptFailed.
func (s *Service) Checkout(ctx context.Context, method backend.PaymentMethod, seller string) (Result, error) {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		s.notices.Notify(notify.Notice{Level: notify.LevelWarning, Title: "Keranjang Kosong", Message: "Tambahkan produk ke keranjang terlebih dahulu"})
		return Result{}, ErrEmptyCart
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer s.inflight.Store(false)

	if strings.TrimSpace(seller) == "" {
		seller = s.seller()
	}
	totals := cart.Compute(lines)

	created, err := s.backend.CreateTransaction(ctx, backend.CreateTransactionRequest{
		Method: method,
		Items:  transactionItems(lines),
	})
	if err != nil {
		if aerr := s.alive(ctx, "create", ""); aerr != nil {
			return Result{}, aerr
		}
		s.failure("checkout: create transaction", err, "Gagal memproses transaksi")
		return Result{}, fmt.Errorf("create transaction: %w", err)
	}
	code := created.TransactionCode
	// stored: finish the sale even if the caller has gone
	if ctx.Err() != nil {
		log.Printf("checkout: %s stored after caller left, completing", code)
	}
	ctx = context.WithoutCancel(ctx)
	res := Result{Code: code, Method: method, Totals: totals}
	payload := salePayload(code, method, seller, lines, totals)

	if method.Redirects() {
		res.PaymentURL = created.PaymentURL
		res.ReturnURL = s.paymentReturn(code)
		payload.Status = string(backend.StatusPending)
		s.emit(ctx, sales.EventSaleCreated, payload)
		log.Printf("checkout: %s %s awaiting payment", method, code)
		return res, nil
	}

	payload.Status = string(backend.StatusPaid)
	rcpt := Receipt{
		Code:     code,
		Method:   string(method),
		Seller:   seller,
		Items:    receiptItemsFromLines(lines),
		Totals:   totals,
		IssuedAt: s.now(),
	}
	html, rerr := s.backend.RenderReceipt(ctx, backend.ReceiptRequest{
		TransactionCode: code,
		Items:           rcpt.Items,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Seller:          seller,
	})
	s.cart.Clear()
	s.emit(ctx, sales.EventSaleCreated, payload)
	if rerr != nil {
		s.failure("checkout: receipt "+code, rerr, "Struk tidak ditemukan")
		return res, fmt.Errorf("sale %s stored: %w: %w", code, ErrReceiptFailed, rerr)
	}
	rcpt.HTML = html
	s.keep(ctx, rcpt)
	res.Receipt = &rcpt
	s.notices.Notify(notify.Notice{Level: notify.LevelSuccess, Title: "Sukses", Message: "Transaksi tunai berhasil", Code: code})
	return res, nil
}

type Outcome string

const (
	OutcomePaid     Outcome = "paid"
	OutcomeExpired  Outcome = "expired"
	OutcomePending  Outcome = "pending"
	OutcomeNotFound Outcome = "not_found"
	OutcomeOther    Outcome = "other"
)

type Reconciliation struct {
	Code      string         `json:"transaction_code"`
	Outcome   Outcome        `json:"outcome"`
	Status    backend.Status `json:"status,omitempty"`
	RawStatus string         `json:"raw_status,omitempty"`
	Message   string         `json:"message"`
	Receipt   *Receipt       `json:"receipt,omitempty"`
	// Replayed is set when the receipt came from the cache, not a new render.
	Replayed bool `json:"replayed"`
}

// Reconcile checks a transaction once after the customer returns from the
// payment page. Safe to repeat: a settled sale replays its cached receipt,
// concurrent calls for one code share a single backend round trip.
func (s *Service) Reconcile(ctx context.Context, code string) (Reconciliation, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Reconciliation{}, ErrMissingCode
	}
	// shared by every caller waiting on code, so no single caller's
	// cancellation may abort it
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(code, func() (any, error) {
		return s.reconcile(shared, code)
	})
	if aerr := s.alive(ctx, "reconcile", code); aerr != nil {
		return Reconciliation{}, aerr
	}
	rec, _ := v.(Reconciliation)
	return rec, err
}

func (s *Service) reconcile(ctx context.Context, code string) (Reconciliation, error) {
	trx, err := s.backend.TransactionByCode(ctx, code)
	if errors.Is(err, backend.ErrNotFound) {
		msg := "Transaksi tidak ditemukan"
		s.notices.Notify(notify.Notice{Level: notify.LevelError, Title: "Error", Message: msg, Code: code})
		return Reconciliation{Code: code, Outcome: OutcomeNotFound, Message: msg},
			fmt.Errorf("reconcile %s: %w", code, backend.ErrTransactionNotFound)
	}
	if err != nil {
		s.failure("checkout: reconcile "+code, err, "Gagal mengambil data transaksi")
		return Reconciliation{}, fmt.Errorf("reconcile %s: %w", code, err)
	}

	rec := Reconciliation{Code: code, Status: trx.Status, RawStatus: trx.RawStatus}
	payload := sales.SalePayload{TransactionCode: code, Method: trx.Method, Status: string(trx.Status), Seller: trx.Seller, Total: trx.Total}

	switch trx.Status {
	case backend.StatusPaid:
		rcpt, replayed, err := s.settle(ctx, trx)
		if err != nil {
			return Reconciliation{}, err
		}
		s.cart.Clear()
		rec.Outcome, rec.Receipt, rec.Replayed = OutcomePaid, &rcpt, replayed
		rec.Message = "Pembayaran berhasil!"
		s.notices.Notify(notify.Notice{Level: notify.LevelSuccess, Title: "Sukses", Message: rec.Message, Code: code})
		if !replayed {
			payload.Subtotal, payload.Tax, payload.Total = rcpt.Totals.Subtotal, rcpt.Totals.Tax, rcpt.Totals.Total
			payload.Seller = rcpt.Seller
			s.emit(ctx, sales.EventSaleSettled, payload)
		}
	case backend.StatusExpired:
		rec.Outcome, rec.Message = OutcomeExpired, "Transaksi sudah kadaluarsa."
		s.notices.Notify(notify.Notice{Level: notify.LevelWarning, Title: "Info", Message: rec.Message, Code: code})
		s.emit(ctx, sales.EventSaleExpired, payload)
	case backend.StatusPending:
		rec.Outcome, rec.Message = OutcomePending, "Pembayaran masih dalam proses."
		s.notices.Notify(notify.Notice{Level: notify.LevelInfo, Title: "Info", Message: rec.Message, Code: code})
	default:
		rec.Outcome, rec.Message = OutcomeOther, "Status transaksi: "+trx.RawStatus
		s.notices.Notify(notify.Notice{Level: notify.LevelInfo, Title: "Info", Message: rec.Message, Code: code})
		if trx.Status == backend.StatusCancelled {
			s.emit(ctx, sales.EventSaleCancelled, payload)
		}
	}
	return rec, nil
}

// settle returns the receipt of a paid sale, rendering it only when no
// earlier reconcile or cash checkout already did.
func (s *Service) settle(ctx context.Context, trx backend.Transaction) (Receipt, bool, error) {
	if r, ok := s.cached(ctx, trx.Code); ok {
		return r, true, nil
	}
	if len(trx.Items) == 0 {
		s.notices.Notify(notify.Notice{Level: notify.LevelError, Title: "Error", Message: "Detail item transaksi tidak ditemukan", Code: trx.Code})
		return Receipt{}, false, fmt.Errorf("reconcile %s: %w", trx.Code, ErrNoItems)
	}
	items, totals := receiptFromItems(trx.Items)
	seller := trx.Seller
	if seller == "" {
		seller = s.seller()
	}
	html, err := s.backend.RenderReceipt(ctx, backend.ReceiptRequest{
		TransactionCode: trx.Code,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Seller:          seller,
		PaymentMethod:   trx.Method,
	})
	if err != nil {
		s.failure("checkout: reconcile receipt "+trx.Code, err, "Gagal generate struk")
		return Receipt{}, false, fmt.Errorf("reconcile %s: %w: %w", trx.Code, ErrReceiptFailed, err)
	}
	r := Receipt{
		Code:     trx.Code,
		HTML:     html,
		Method:   trx.Method,
		Seller:   seller,
		Items:    items,
		Totals:   totals,
		IssuedAt: s.now(),
	}
	s.keep(ctx, r)
	return r, false, nil
}

// LastReceipt is the most recent receipt shown to the cashier.
func (s *Service) LastReceipt() (Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Receipt{}, false
	}
	return *s.last, true
}

// Receipt looks up an already rendered receipt, for reprints.
func (s *Service) Receipt(ctx context.Context, code string) (Receipt, bool) {
	return s.cached(ctx, code)
}

func (s *Service) cached(ctx context.Context, code string) (Receipt, bool) {
	b, ok, err := s.receipts.Get(ctx, code)
	if err != nil {
		log.Printf("checkout: receipt cache get %s: %v", code, err)
		return Receipt{}, false
	}
	if !ok {
		return Receipt{}, false
	}
	r, err := decodeReceipt(b)
	if err != nil {
		log.Printf("checkout: receipt cache decode %s: %v", code, err)
		return Receipt{}, false
	}
	return r, true
}

func (s *Service) keep(ctx context.Context, r Receipt) {
	s.mu.Lock()
	s.last = &r
	s.mu.Unlock()
	b, err := encodeReceipt(r)
	if err == nil {
		err = s.receipts.Put(ctx, r.Code, b)
	}
	if err != nil {
		log.Printf("checkout: receipt cache put %s: %v", r.Code, err)
	}
}

// alive is checked where a caller's result is about to be applied. A
// cancelled ctx means the caller is gone and the result is dropped.
func (s *Service) alive(ctx context.Context, step, code string) error {
	if err := ctx.Err(); err != nil {
		log.Printf("checkout: %s %s: result discarded: %v", step, code, err)
		return fmt.Errorf("%w: %w", ErrAbandoned, err)
	}
	return nil
}

// failure logs err and raises one notice. Validation messages from the
// backend are appended verbatim.
func (s *Service) failure(where string, err error, msg string) {
	log.Printf("%s: %v", where, err)
	if ae, ok := backend.AsAPIError(err); ok {
		if fields := ae.FieldErrors(); len(fields) > 0 {
			msg += "\n" + strings.Join(fields, "\n")
		} else if ae.Message != "" {
			msg = ae.Message
		}
	}
	s.notices.Notify(notify.Notice{Level: notify.LevelError, Title: "Error", Message: msg})
}

func (s *Service) emit(ctx context.Context, eventType string, p sales.SalePayload) {
	if s.events == nil {
		return
	}
	s.events.Emit(context.WithoutCancel(ctx), eventType, p)
}

func (s *Service) paymentReturn(code string) string {
	if s.returnURL == "" {
		return ""
	}
	if strings.Contains(s.returnURL, "{code}") {
		return strings.ReplaceAll(s.returnURL, "{code}", url.PathEscape(code))
	}
	u, err := url.Parse(s.returnURL)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("transaction_code", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func transactionItems(lines []cart.Line) []backend.TransactionItem {
	out := make([]backend.TransactionItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, backend.TransactionItem{
			ProductID: l.Product.ID,
			Quantity:  l.Quantity,
			Price:     l.Product.Price,
			Name:      l.Product.Name,
		})
	}
	return out
}

func salePayload(code string, method backend.PaymentMethod, seller string, lines []cart.Line, t cart.Totals) sales.SalePayload {
	items := make([]sales.Line, 0, len(lines))
	for _, l := range lines {
		items = append(items, sales.Line{ProductID: l.Product.ID, Name: l.Product.Name, Qty: l.Quantity, Price: l.Product.Price})
	}
	return sales.SalePayload{
		TransactionCode: code,
		Method:          string(method),
		Seller:          seller,
		Items:           items,
		Subtotal:        t.Subtotal,
		Tax:             t.Tax,
		Total:           t.Total,
	}
}
