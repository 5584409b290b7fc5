package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"satistakip/backend/internal/domain"
)

const (
	TopN                = 10
	UnknownProductLabel = "Bilinmeyen Ürün"
	GuestCustomerLabel  = "Misafir"
)

var turkishMonths = [...]string{"Oca", "Şub", "Mar", "Nis", "May", "Haz", "Tem", "Ağu", "Eyl", "Eki", "Kas", "Ara"}

// DayLabel formats t as a short Turkish day-month label, e.g. "16 Eki".
func DayLabel(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), turkishMonths[t.Month()-1])
}

var hundred = decimal.NewFromInt(100)

// Aggregate computes report metrics from sales already filtered to a range.
// It is a pure function of its inputs. Daily buckets are keyed by calendar
// date in loc and appear in order of first occurrence, so callers should
// pass sales sorted by creation time.
func Aggregate(sales []domain.SaleRecord, loc *time.Location) domain.ReportAggregate {
	if loc == nil {
		loc = time.UTC
	}

	agg := domain.ReportAggregate{
		TotalRevenue:  decimal.Zero,
		TotalProfit:   decimal.Zero,
		MarginPercent: decimal.Zero,
		DailySeries:   []domain.DailyPoint{},
		TopProducts:   []domain.ProductRollup{},
		TopCustomers:  []domain.CustomerRollup{},
	}

	dayIndex := map[string]int{}
	productIndex := map[string]int{}
	customerIndex := map[string]int{}

	for _, sale := range sales {
		agg.TotalRevenue = agg.TotalRevenue.Add(sale.TotalAmount)
		agg.TotalSalesCount++

		local := sale.CreatedAt.In(loc)
		dayKey := local.Format("2006-01-02")
		di, ok := dayIndex[dayKey]
		if !ok {
			di = len(agg.DailySeries)
			dayIndex[dayKey] = di
			agg.DailySeries = append(agg.DailySeries, domain.DailyPoint{
				Date:    dayKey,
				Label:   DayLabel(local),
				Revenue: decimal.Zero,
				Profit:  decimal.Zero,
			})
		}
		agg.DailySeries[di].Revenue = agg.DailySeries[di].Revenue.Add(sale.TotalAmount)

		for _, item := range sale.Items {
			qty := decimal.NewFromInt(int64(item.Quantity))
			cost := decimal.Zero
			if item.PurchasePrice.Valid {
				cost = item.PurchasePrice.Decimal
			}
			profit := item.UnitPrice.Sub(cost).Mul(qty)

			agg.TotalProfit = agg.TotalProfit.Add(profit)
			agg.TotalItemsSold += item.Quantity
			agg.DailySeries[di].Profit = agg.DailySeries[di].Profit.Add(profit)

			name := item.ProductName
			if name == "" {
				name = UnknownProductLabel
			}
			pi, ok := productIndex[name]
			if !ok {
				pi = len(agg.TopProducts)
				productIndex[name] = pi
				agg.TopProducts = append(agg.TopProducts, domain.ProductRollup{Name: name, Revenue: decimal.Zero, Profit: decimal.Zero})
			}
			p := &agg.TopProducts[pi]
			p.Qty += item.Quantity
			p.Revenue = p.Revenue.Add(item.UnitPrice.Mul(qty))
			p.Profit = p.Profit.Add(profit)
		}

		customer := sale.CustomerName
		if customer == "" {
			customer = GuestCustomerLabel
		}
		ci, ok := customerIndex[customer]
		if !ok {
			ci = len(agg.TopCustomers)
			customerIndex[customer] = ci
			agg.TopCustomers = append(agg.TopCustomers, domain.CustomerRollup{Name: customer, Total: decimal.Zero})
		}
		agg.TopCustomers[ci].Count++
		agg.TopCustomers[ci].Total = agg.TopCustomers[ci].Total.Add(sale.TotalAmount)
	}

	sort.SliceStable(agg.TopProducts, func(i, j int) bool {
		return agg.TopProducts[i].Revenue.GreaterThan(agg.TopProducts[j].Revenue)
	})
	sort.SliceStable(agg.TopCustomers, func(i, j int) bool {
		return agg.TopCustomers[i].Total.GreaterThan(agg.TopCustomers[j].Total)
	})
	if len(agg.TopProducts) > TopN {
		agg.TopProducts = agg.TopProducts[:TopN]
	}
	if len(agg.TopCustomers) > TopN {
		agg.TopCustomers = agg.TopCustomers[:TopN]
	}

	if agg.TotalRevenue.IsPositive() {
		agg.MarginPercent = agg.TotalProfit.Div(agg.TotalRevenue).Mul(hundred)
	}
	return agg
}
