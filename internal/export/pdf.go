package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/plan"
	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
)

type quotationDay struct {
	DateKey        string
	RestaurantName string
	Lines          []pricing.FoodLine
	Totals         pricing.Totals
}

// QuotationData is everything the quotation PDF needs, already priced.
type QuotationData struct {
	Order       plan.Order
	CompanyName string
	Quotation   pricing.PriceQuotation
	Detail      plan.OrderDetail
	GeneratedAt time.Time
}

func quotationDays(detail plan.OrderDetail) []quotationDay {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var days []quotationDay
	for _, k := range keys {
		sub := detail[k]
		if sub.IsCanceled() {
			continue
		}
		days = append(days, quotationDay{
			DateKey:        k,
			RestaurantName: sub.Restaurant.RestaurantName,
			Lines:          pricing.FoodBreakdown(sub),
			Totals:         pricing.DayTotals(sub),
		})
	}
	return days
}

func formatMoney(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return sign + strings.Join(parts, ".") + " VND"
}

// Date keys are epoch-millisecond strings; fall back to the raw key when a
// fixture uses something else.
func formatDateKey(key string) string {
	ms, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return key
	}
	return time.UnixMilli(ms).UTC().Format("Mon, 02 Jan 2006")
}

func sanitizeFilename(value string) string {
	re := regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	clean := re.ReplaceAllString(value, "_")
	return strings.Trim(clean, "_")
}

// RenderQuotationPDF renders the client-facing quotation document.
func RenderQuotationPDF(data QuotationData) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 9, "Price Quotation", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if data.CompanyName != "" {
		pdf.CellFormat(0, 5, data.CompanyName, "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("Order %s", data.Order.ID), "", 1, "C", false, 0, "")
	if !data.GeneratedAt.IsZero() {
		pdf.CellFormat(0, 5, fmt.Sprintf("Generated: %s", data.GeneratedAt.Format("02 Jan 2006 15:04")), "", 1, "C", false, 0, "")
	}

	for _, day := range quotationDays(data.Detail) {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 11)
		title := formatDateKey(day.DateKey)
		if day.RestaurantName != "" {
			title += " - " + day.RestaurantName
		}
		pdf.CellFormat(0, 6, title, "B", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 9)
		for _, line := range day.Lines {
			name := line.FoodName
			if name == "" {
				name = line.FoodID
			}
			pdf.CellFormat(120, 5, fmt.Sprintf("%dx %s", line.Frequency, name), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 5, formatMoney(line.FoodPrice*line.Frequency), "", 1, "R", false, 0, "")
			for _, note := range line.Notes {
				if note == "" {
					continue
				}
				pdf.CellFormat(0, 4, "  "+note, "", 1, "L", false, 0, "")
			}
		}
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(120, 5, fmt.Sprintf("Day total (%d dishes)", day.Totals.TotalDishes), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, formatMoney(day.Totals.TotalPrice), "", 1, "R", false, 0, "")
	}

	q := data.Quotation
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, "Summary", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)

	rows := []struct {
		label string
		value string
	}{
		{"Total dishes", fmt.Sprintf("%d", q.TotalDishes)},
		{"Food total", formatMoney(q.TotalPrice)},
		{"Service fee", formatMoney(q.ServiceFee)},
		{"PITO fee", formatMoney(q.PITOFee)},
		{"Transport fee", formatMoney(q.TransportFee)},
		{"Promotion", formatMoney(-q.Promotion)},
		{"Total before VAT", formatMoney(q.TotalWithoutVAT)},
		{"VAT", formatMoney(q.VATFee)},
	}
	for _, row := range rows {
		pdf.CellFormat(120, 5, row.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, row.value, "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(120, 7, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, formatMoney(q.TotalWithVAT), "T", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	if q.IsOverflowPackage {
		pdf.CellFormat(0, 5, fmt.Sprintf("Overflow above package: %s", formatMoney(q.Overflow)), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("PITO points earned: %d", q.PITOPoints), "", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Exporter renders quotation PDFs and publishes them through an Uploader.
type Exporter struct {
	Store Uploader
}

// ExportQuotation renders the document and uploads it under a key derived
// from the order id. Returns the public URL of the stored file.
func (e *Exporter) ExportQuotation(ctx context.Context, data QuotationData) (string, error) {
	buf, err := RenderQuotationPDF(data)
	if err != nil {
		return "", fmt.Errorf("render quotation pdf: %w", err)
	}
	key := fmt.Sprintf("quotations/%s.pdf", sanitizeFilename(data.Order.ID))
	url, err := e.Store.Upload(ctx, key, buf.Bytes(), "application/pdf")
	if err != nil {
		return "", fmt.Errorf("upload quotation pdf: %w", err)
	}
	return url, nil
}
