package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"satistakip/backend/internal/domain"
)

// WriteCSV writes the aggregate as section,name,metric,value rows. Names are
// kept in their own column so any product or customer name round-trips.
func WriteCSV(w io.Writer, rng Range, agg domain.ReportAggregate) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"section", "name", "metric", "value"},
		{"summary", "", "range", string(rng.Kind)},
		{"summary", "", "start", rng.Start.Format("2006-01-02")},
		{"summary", "", "end", rng.End.Format("2006-01-02")},
		{"summary", "", "total_revenue", money(agg.TotalRevenue)},
		{"summary", "", "total_profit", money(agg.TotalProfit)},
		{"summary", "", "total_sales_count", strconv.Itoa(agg.TotalSalesCount)},
		{"summary", "", "total_items_sold", strconv.Itoa(agg.TotalItemsSold)},
		{"summary", "", "margin_percent", money(agg.MarginPercent)},
	}
	for _, day := range agg.DailySeries {
		rows = append(rows,
			[]string{"daily", day.Date, "revenue", money(day.Revenue)},
			[]string{"daily", day.Date, "profit", money(day.Profit)},
		)
	}
	for _, p := range agg.TopProducts {
		name := safeCell(p.Name)
		rows = append(rows,
			[]string{"product", name, "qty", strconv.Itoa(p.Qty)},
			[]string{"product", name, "revenue", money(p.Revenue)},
			[]string{"product", name, "profit", money(p.Profit)},
		)
	}
	for _, c := range agg.TopCustomers {
		name := safeCell(c.Name)
		rows = append(rows,
			[]string{"customer", name, "count", strconv.Itoa(c.Count)},
			[]string{"customer", name, "total", money(c.Total)},
		)
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write report csv: %w", err)
	}
	return nil
}

const (
	sheetSummary   = "Özet"
	sheetDaily     = "Günlük"
	sheetProducts  = "Ürünler"
	sheetCustomers = "Müşteriler"
)

// WriteXLSX writes the aggregate as a workbook with one sheet per section.
func WriteXLSX(w io.Writer, rng Range, agg domain.ReportAggregate) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	for _, name := range []string{sheetDaily, sheetProducts, sheetCustomers} {
		if _, err := file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Dönem", string(rng.Kind)},
		{"Başlangıç", rng.Start.Format("2006-01-02")},
		{"Bitiş", rng.End.Format("2006-01-02")},
		{"Toplam Gelir", agg.TotalRevenue.InexactFloat64()},
		{"Toplam Kâr", agg.TotalProfit.InexactFloat64()},
		{"Satış Sayısı", agg.TotalSalesCount},
		{"Satılan Ürün", agg.TotalItemsSold},
		{"Kâr Marjı (%)", agg.MarginPercent.Round(2).InexactFloat64()},
	}
	if err := writeRows(file, sheetSummary, summary); err != nil {
		return err
	}

	daily := [][]any{{"Tarih", "Gün", "Gelir", "Kâr"}}
	for _, day := range agg.DailySeries {
		daily = append(daily, []any{day.Date, day.Label, day.Revenue.InexactFloat64(), day.Profit.InexactFloat64()})
	}
	if err := writeRows(file, sheetDaily, daily); err != nil {
		return err
	}

	products := [][]any{{"Ürün", "Adet", "Gelir", "Kâr"}}
	for _, p := range agg.TopProducts {
		products = append(products, []any{safeCell(p.Name), p.Qty, p.Revenue.InexactFloat64(), p.Profit.InexactFloat64()})
	}
	if err := writeRows(file, sheetProducts, products); err != nil {
		return err
	}

	customers := [][]any{{"Müşteri", "Satış", "Toplam"}}
	for _, c := range agg.TopCustomers {
		customers = append(customers, []any{safeCell(c.Name), c.Count, c.Total.InexactFloat64()})
	}
	if err := writeRows(file, sheetCustomers, customers); err != nil {
		return err
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write report workbook: %w", err)
	}
	return nil
}

func writeRows(file *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// safeCell prefixes text that a spreadsheet would evaluate as a formula.
func safeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

func money(v decimal.Decimal) string {
	return v.StringFixed(2)
}
