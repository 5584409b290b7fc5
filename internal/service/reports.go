package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"satistakip/backend/internal/domain"
	"satistakip/backend/internal/report"
	"satistakip/backend/internal/store"
)

const (
	dashboardDays        = 7
	dashboardLowStockMax = 5
	dashboardRecentSales = 5
)

// ReportQuery selects a report window. Start and End are YYYY-MM-DD dates and
// are only read for the custom range.
type ReportQuery struct {
	Range string
	Start string
	End   string
}

type ReportResult struct {
	Range     report.Range           `json:"range"`
	Aggregate domain.ReportAggregate `json:"aggregate"`
	Stale     bool                   `json:"stale,omitempty"`
}

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

func (s *Service) resolveRange(q ReportQuery) (report.Range, error) {
	kind, err := report.ParseRangeKind(q.Range)
	if err != nil {
		return report.Range{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	var start, end time.Time
	if kind == report.RangeCustom {
		if start, err = parseDate(q.Start, s.loc); err != nil {
			return report.Range{}, err
		}
		if end, err = parseDate(q.End, s.loc); err != nil {
			return report.Range{}, err
		}
	}

	rng, err := report.ResolveRange(kind, s.now(), start, end, s.loc)
	if err != nil {
		return report.Range{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if rng.End.Before(rng.Start) {
		return report.Range{}, invalid("range end is before its start")
	}
	return rng, nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, invalid("date %q must be YYYY-MM-DD", raw)
	}
	return parsed, nil
}

// SalesReport aggregates the sales of one window. When the sales query fails
// and the last result for the same range kind covers the same window, that
// result comes back marked stale alongside an ErrQueryFailure error.
func (s *Service) SalesReport(ctx context.Context, q ReportQuery) (ReportResult, error) {
	rng, err := s.resolveRange(q)
	if err != nil {
		return ReportResult{}, err
	}

	sales, err := s.repo.ListSalesBetween(ctx, rng.Start, rng.End)
	if err != nil {
		s.logger.Warn("sales report query failed",
			zap.String("range", string(rng.Kind)),
			zap.Time("start", rng.Start),
			zap.Time("end", rng.End),
			zap.Error(err),
		)
		s.reportsMu.Lock()
		previous, ok := s.lastReports[rng.Kind]
		s.reportsMu.Unlock()
		if ok && previous.Range.Key() == rng.Key() {
			previous.Stale = true
			return previous, fmt.Errorf("%w: %w", report.ErrQueryFailure, err)
		}
		return ReportResult{Range: rng}, fmt.Errorf("%w: %w", report.ErrQueryFailure, err)
	}

	result := ReportResult{Range: rng, Aggregate: report.Aggregate(sales, s.loc)}
	s.reportsMu.Lock()
	s.lastReports[rng.Kind] = result
	s.reportsMu.Unlock()
	return result, nil
}

// ExportSalesReport writes the report in the requested format. Exports never
// fall back to a stale aggregate.
func (s *Service) ExportSalesReport(ctx context.Context, q ReportQuery, format ExportFormat, w io.Writer) error {
	if format != ExportCSV && format != ExportXLSX {
		return invalid("unknown export format %q", format)
	}
	result, err := s.SalesReport(ctx, q)
	if err != nil {
		return err
	}
	if format == ExportXLSX {
		return report.WriteXLSX(w, result.Range, result.Aggregate)
	}
	return report.WriteCSV(w, result.Range, result.Aggregate)
}

func (s *Service) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var out domain.Dashboard
	var err error

	if out.CustomerCount, err = s.repo.CountCustomers(ctx); err != nil {
		return domain.Dashboard{}, err
	}
	if out.ProductCount, err = s.repo.CountProducts(ctx); err != nil {
		return domain.Dashboard{}, err
	}
	if out.StockCount, err = s.repo.TotalStock(ctx); err != nil {
		return domain.Dashboard{}, err
	}

	now := s.now().In(s.loc)
	today, err := report.ResolveRange(report.RangeToday, now, time.Time{}, time.Time{}, s.loc)
	if err != nil {
		return domain.Dashboard{}, err
	}
	firstDay := today.Start.AddDate(0, 0, -(dashboardDays - 1))

	sales, err := s.repo.ListSalesBetween(ctx, firstDay, today.End)
	if err != nil {
		return domain.Dashboard{}, err
	}

	out.TodaySales = decimal.Zero
	out.LastSevenDays = make([]domain.DashboardPoint, 0, dashboardDays)
	index := make(map[string]int, dashboardDays)
	for i := 0; i < dashboardDays; i++ {
		day := firstDay.AddDate(0, 0, i)
		key := day.Format("2006-01-02")
		index[key] = i
		out.LastSevenDays = append(out.LastSevenDays, domain.DashboardPoint{
			Date:    key,
			Label:   report.DayLabel(day),
			Revenue: decimal.Zero,
		})
	}
	todayKey := today.Start.Format("2006-01-02")
	for _, sale := range sales {
		key := sale.CreatedAt.In(s.loc).Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			continue
		}
		out.LastSevenDays[i].Revenue = out.LastSevenDays[i].Revenue.Add(sale.TotalAmount)
		if key == todayKey {
			out.TodaySales = out.TodaySales.Add(sale.TotalAmount)
		}
	}

	if out.LowStock, err = s.repo.ListLowStock(ctx, store.LowStockThreshold, dashboardLowStockMax); err != nil {
		return domain.Dashboard{}, err
	}
	if out.RecentSales, err = s.repo.ListSales(ctx, dashboardRecentSales); err != nil {
		return domain.Dashboard{}, err
	}
	return out, nil
}
