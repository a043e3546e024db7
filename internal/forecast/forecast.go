// Package forecast estimates monthly spend from ledger history using a
// rolling daily average, leaning on actuals as the month closes.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// sparseMonthThreshold is the entry count below which a past month is
// treated as a flat daily baseline instead of its literal daily spikes.
const sparseMonthThreshold = 30

// rollingWindow is the smoothing window in days.
const rollingWindow = 7

// monthEndBlend is the month progress past which the estimate leans on
// actual spend instead of the projection.
const monthEndBlend = 0.8

// Rolling produces expense forecasts from the owner's ledger history.
type Rolling struct {
	storage service.Storage
}

// NewRolling returns a forecaster backed by the given storage.
func NewRolling(storage service.Storage) *Rolling {
	return &Rolling{storage: storage}
}

var _ service.Forecaster = (*Rolling)(nil)

// Forecast returns the expected spend for the current and next month plus
// the amount already spent. With no expense history every figure is zero
// and HasData is false.
func (r *Rolling) Forecast(ctx context.Context, owner string, asOf time.Time) (service.ExpenseForecast, error) {
	var fc service.ExpenseForecast

	entries, err := r.storage.ListEntries(ctx, owner, service.EntryFilter{Kind: model.KindExpense})
	if err != nil {
		return fc, fmt.Errorf("failed to load expense history: %w", err)
	}
	if len(entries) == 0 {
		return fc, nil
	}
	fc.HasData = true

	today := asOf.UTC()
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	daysThisMonth := daysInMonth(today.Year(), today.Month())
	progress := float64(today.Day()) / float64(daysThisMonth)

	daily := normalizeDaily(entries, firstOfMonth)

	spent := 0.0
	for day, amount := range daily {
		if !day.Before(firstOfMonth) && !day.After(today) {
			spent += amount
		}
	}
	fc.SpentSoFar = toMoney(spent)

	past := seriesBefore(daily, firstOfMonth)

	thisMonth, ok := rollingEstimate(past, daysThisMonth)
	if ok {
		if progress > monthEndBlend && spent > 0 {
			weight := math.Min(1.0, progress)
			thisMonth = weight*spent + (1-weight)*thisMonth
		}
		fc.ThisMonthExpected = toMoney(thisMonth)
	}

	nextFirst := firstOfMonth.AddDate(0, 1, 0)
	if nextMonth, ok := rollingEstimate(past, daysInMonth(nextFirst.Year(), nextFirst.Month())); ok {
		fc.NextMonthExpected = toMoney(nextMonth)
	}

	return fc, nil
}

// normalizeDaily builds per-day totals. Past months with only a handful of
// entries are flattened into a daily baseline so one bulk-entered month
// does not read as a single-day spike; the current month keeps actuals.
func normalizeDaily(entries []model.Entry, firstOfMonth time.Time) map[time.Time]float64 {
	type monthKey struct {
		year  int
		month time.Month
	}

	byMonth := make(map[monthKey][]model.Entry)
	for _, e := range entries {
		d := e.Date.UTC()
		k := monthKey{d.Year(), d.Month()}
		byMonth[k] = append(byMonth[k], e)
	}

	daily := make(map[time.Time]float64)
	for k, group := range byMonth {
		monthStart := time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC)
		isPast := monthStart.Before(firstOfMonth)

		if isPast && len(group) < sparseMonthThreshold {
			total := 0.0
			for _, e := range group {
				total += e.Amount.InexactFloat64()
			}
			days := daysInMonth(k.year, k.month)
			baseline := total / float64(sparseMonthThreshold)
			for d := 0; d < days; d++ {
				daily[monthStart.AddDate(0, 0, d)] += baseline
			}
			continue
		}

		for _, e := range group {
			day := time.Date(k.year, k.month, e.Date.UTC().Day(), 0, 0, 0, 0, time.UTC)
			daily[day] += e.Amount.InexactFloat64()
		}
	}
	return daily
}

// seriesBefore returns a continuous zero-filled daily series covering
// every day from the earliest entry up to (excluding) cutoff.
func seriesBefore(daily map[time.Time]float64, cutoff time.Time) []float64 {
	var days []time.Time
	for day := range daily {
		if day.Before(cutoff) {
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return nil
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	first, last := days[0], days[len(days)-1]
	var series []float64
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		series = append(series, daily[d])
	}
	return series
}

// rollingEstimate caps outlier days, smooths with a rolling mean, and
// scales the average day to a full month.
func rollingEstimate(series []float64, days int) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	total := 0.0
	for _, v := range series {
		total += v
	}
	if total == 0 {
		return 0, false
	}

	med := median(series)
	cap := med * 5
	if med <= 0 {
		cap = maxOf(series)
	}
	capped := make([]float64, len(series))
	for i, v := range series {
		capped[i] = math.Min(v, cap)
	}

	// Rolling mean with a growing window at the head.
	sum := 0.0
	rollingSum := 0.0
	for i := range capped {
		sum += capped[i]
		if i >= rollingWindow {
			sum -= capped[i-rollingWindow]
		}
		window := float64(min(i+1, rollingWindow))
		rollingSum += sum / window
	}

	avgDaily := rollingSum / float64(len(capped))
	return avgDaily * float64(days), true
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func toMoney(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
