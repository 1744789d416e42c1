package report

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ariefcatur/telava-pos/internal/backend"
	"github.com/ariefcatur/telava-pos/internal/idr"
	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Row is one transaction with its product lines.
type Row struct {
	backend.Transaction
	Details []backend.Item
}

type ItemSource interface {
	TransactionItems(ctx context.Context, id int) ([]backend.Item, error)
}

const detailFetchLimit = 4

// Collect fetches product lines for every transaction, a few at a time.
// A failed fetch leaves that row without details.
func Collect(ctx context.Context, src ItemSource, trxs []backend.Transaction) ([]Row, error) {
	rows := make([]Row, len(trxs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailFetchLimit)
	for i, t := range trxs {
		rows[i] = Row{Transaction: t}
		if t.ID == 0 {
			continue
		}
		g.Go(func() error {
			items, err := src.TransactionItems(gctx, t.ID)
			if err != nil {
				log.Printf("report: details for %s: %v", t.Code, err)
				return nil
			}
			rows[i].Details = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, ctx.Err()
}

var colWidths = []float64{45, 30, 22, 32, 30, 118}

// WritePDF renders the transaction report ("Laporan Semua Transaksi").
func WritePDF(w io.Writer, rows []Row, generatedAt time.Time) error {
	return writePDF(w, rows, generatedAt, true)
}

func writePDF(w io.Writer, rows []Row, generatedAt time.Time, compress bool) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(compress)
	// core fonts are cp1252; names and notes arrive as UTF-8
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Laporan Semua Transaksi", false)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Laporan Semua Transaksi", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "Dibuat "+generatedAt.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(241, 245, 249)
		for i, h := range []string{"Kode", "Kasir", "Metode", "Tanggal", "Total", "Detail Barang"} {
			pdf.CellFormat(colWidths[i], 8, tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	grand := decimal.Zero
	for _, r := range rows {
		details := detailLines(r.Details)
		h := float64(len(details)) * 5
		if h < 7 {
			h = 7
		}
		_, pageH := pdf.GetPageSize()
		_, _, _, bottom := pdf.GetMargins()
		if pdf.GetY()+h > pageH-bottom-12 {
			pdf.AddPage()
			header()
		}
		date := "-"
		if !r.CreatedAt.IsZero() {
			date = r.CreatedAt.Format("02/01/2006 15:04")
		}
		cells := []string{orDash(r.Code), orDash(r.Seller), orDash(r.Method), date, idr.Format(r.Total)}
		x, y := pdf.GetXY()
		for i, c := range cells {
			pdf.Rect(x, y, colWidths[i], h, "D")
			pdf.SetXY(x+1, y+1)
			pdf.CellFormat(colWidths[i]-2, 5, tr(c), "", 0, "L", false, 0, "")
			x += colWidths[i]
		}
		pdf.Rect(x, y, colWidths[5], h, "D")
		for j, d := range details {
			pdf.SetXY(x+1, y+1+float64(j)*5)
			pdf.CellFormat(colWidths[5]-2, 5, tr(d), "", 0, "L", false, 0, "")
		}
		pdf.SetY(y + h)
		grand = grand.Add(r.Total)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%d transaksi, total %s", len(rows), idr.Format(grand))), "", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func detailLines(items []backend.Item) []string {
	if len(items) == 0 {
		return []string{"-"}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		name := it.Name
		if name == "" {
			name = "-"
		}
		out = append(out, fmt.Sprintf("%s  %d x %s = %s", name, it.Quantity, idr.Format(it.Price), idr.Format(it.Amount())))
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
