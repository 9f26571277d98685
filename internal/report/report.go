// Package report renders back-office exports.
package report

import (
	"fmt"
	"io"
	"strings"

	"storefront/internal/models"

	"github.com/tealeg/xlsx"
)

const (
	// ContentTypeXLSX is the media type of WriteOrders output.
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	ordersSheet = "Orders"
	timeLayout  = "2006-01-02 15:04:05"
)

var orderHeaders = []string{
	"Order ID", "Invoice ID", "Date", "Status", "Customer Name", "Phone",
	"Address", "Items", "Item Count", "Total", "Source",
}

// WriteOrders writes orders as a single-sheet workbook
func WriteOrders(w io.Writer, orders []models.OrderRecord) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(ordersSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range orderHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.OrderID)
		row.AddCell().SetValue(o.InvoiceID)
		row.AddCell().SetValue(o.CreatedAt.Format(timeLayout))
		row.AddCell().SetValue(string(o.Status))
		row.AddCell().SetValue(orDash(o.Customer.Name))
		row.AddCell().SetValue(orDash(o.Customer.Phone))
		row.AddCell().SetValue(orDash(o.Customer.Address))
		row.AddCell().SetValue(itemSummary(o.Items))
		row.AddCell().SetInt(o.ItemCount)
		row.AddCell().SetFloat(o.Total.InexactFloat64())
		row.AddCell().SetValue(o.Source)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Filename names an export file after its date.
func Filename(prefix, date string) string {
	return fmt.Sprintf("%s-%s.xlsx", prefix, date)
}

func itemSummary(items models.OrderItems) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.Title, it.Quantity))
	}
	return strings.Join(parts, "; ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
