package printer

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ariefcatur/telava-pos/internal/idr"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const (
	Width  = 32
	Header = "*** TELAVA POS ***"
	Footer = "Terima Kasih!"
)

type SlipLine struct {
	Name  string
	Qty   int
	Price decimal.Decimal
}

// Slip is everything printed on a receipt.
type Slip struct {
	Code     string
	Seller   string
	Method   string
	At       time.Time
	Lines    []SlipLine
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	// QR is encoded below the totals when set, e.g. a payment link.
	QR string
}

// FormatReceipt lays a slip out for a 58mm printer.
func FormatReceipt(s Slip) string {
	var b strings.Builder
	rule := strings.Repeat("=", Width)
	thin := strings.Repeat("-", Width)

	b.WriteString(center(Header) + "\n")
	b.WriteString(rule + "\n")
	if s.Code != "" {
		b.WriteString(pair("No", s.Code) + "\n")
	}
	if !s.At.IsZero() {
		b.WriteString(pair("Tanggal", s.At.Format("02/01/2006 15:04")) + "\n")
	}
	if s.Seller != "" {
		b.WriteString(pair("Kasir", s.Seller) + "\n")
	}
	if s.Method != "" {
		b.WriteString(pair("Bayar", strings.ToUpper(s.Method)) + "\n")
	}
	b.WriteString(thin + "\n")
	for _, l := range s.Lines {
		b.WriteString(clip(l.Name, Width) + "\n")
		amount := l.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
		b.WriteString(pair(fmt.Sprintf("  %d x %s", l.Qty, idr.Format(l.Price)), idr.Format(amount)) + "\n")
	}
	b.WriteString(thin + "\n")
	b.WriteString(pair("Subtotal", idr.Format(s.Subtotal)) + "\n")
	b.WriteString(pair("Pajak 12%", idr.Format(s.Tax)) + "\n")
	b.WriteString(pair("Total", idr.Format(s.Total)) + "\n")
	b.WriteString(rule + "\n")
	if s.QR != "" {
		if qr, err := qrBlock(s.QR); err == nil {
			b.WriteString(qr)
		}
	}
	b.WriteString(center(Footer) + "\n")
	return b.String()
}

// pair puts left and right on one line, clipping left when they do not fit.
func pair(left, right string) string {
	rw := utf8.RuneCountInString(right)
	room := Width - rw - 1
	if room < 1 {
		return clip(right, Width)
	}
	left = clip(left, room)
	return left + strings.Repeat(" ", Width-utf8.RuneCountInString(left)-rw) + right
}

func center(s string) string {
	s = clip(s, Width)
	pad := (Width - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// qrBlock draws the code with half blocks, two modules rows per text line.
func qrBlock(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", err
	}
	q.DisableBorder = true
	bm := q.Bitmap()
	var b strings.Builder
	for y := 0; y < len(bm); y += 2 {
		for x := range bm[y] {
			top := bm[y][x]
			bottom := y+1 < len(bm) && bm[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}
