package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/shopspring/decimal"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterPaid      Filter = "paid"
	FilterExpired   Filter = "expired"
	FilterCancelled Filter = "cancelled"
)

func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterPending, FilterPaid, FilterExpired, FilterCancelled:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

func (f Filter) matches(st backend.Status) bool {
	switch f {
	case FilterAll:
		return true
	case FilterPending:
		return st == backend.StatusPending
	case FilterPaid:
		return st == backend.StatusPaid
	case FilterExpired:
		return st == backend.StatusExpired
	case FilterCancelled:
		return st == backend.StatusCancelled
	}
	return false
}

// Apply keeps the transactions matching f whose code or seller contains query.
func Apply(trxs []backend.Transaction, f Filter, query string) []backend.Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]backend.Transaction, 0, len(trxs))
	for _, t := range trxs {
		if !f.matches(t.Status) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Code), q) && !strings.Contains(strings.ToLower(t.Seller), q) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Label is the status text shown in the history list.
func Label(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "":
		return "TIDAK DIKETAHUI"
	case "PAID":
		return "DIBAYAR"
	case "SUCCES", "SUCCESS", "COMPLETED":
		return "BERHASIL"
	case "PENDING":
		return "MENUNGGU"
	case "EXPIRED":
		return "KADALUARSA"
	case "CANCELLED", "CANCELED":
		return "DIBATALKAN"
	default:
		return s
	}
}

type Summary struct {
	Revenue      decimal.Decimal `json:"revenue"`
	Transactions int             `json:"transactions"`
	Today        int             `json:"today"`
	ThisMonth    int             `json:"this_month"`
	Products     int             `json:"products"`
}

// Summarize builds the dashboard figures. Revenue counts paid sales only;
// day and month are taken in now's location.
func Summarize(trxs []backend.Transaction, products int, now time.Time) Summary {
	s := Summary{Revenue: decimal.Zero, Transactions: len(trxs), Products: products}
	loc := now.Location()
	y, m, d := now.Date()
	for _, t := range trxs {
		if t.Status == backend.StatusPaid {
			s.Revenue = s.Revenue.Add(t.Total)
		}
		if t.CreatedAt.IsZero() {
			continue
		}
		ty, tm, td := t.CreatedAt.In(loc).Date()
		if ty == y && tm == m {
			s.ThisMonth++
			if td == d {
				s.Today++
			}
		}
	}
	return s
}
