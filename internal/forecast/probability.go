package forecast

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// surplusWindow is how many months of surplus history feed the outlook.
const surplusWindow = 12

// simulationRuns is the Monte Carlo sample count for the confidence band.
const simulationRuns = 1000

// maxOutlookMonths caps a suggested deadline at ten years out.
const maxOutlookMonths = 120

// lowDataVariance is the relative spread assumed when the surplus history
// shows no variance of its own.
const lowDataVariance = 0.1

// Probability scores how likely a goal is to reach its target by its
// deadline. A least-squares trend over the last year of monthly surplus
// gives the headline probability; Monte Carlo draws around the same
// history give a confidence band on the final balance.
type Probability struct {
	storage service.Storage
	rng     *rand.Rand
}

// NewProbability returns a goal predictor backed by the given storage.
func NewProbability(storage service.Storage) *Probability {
	return &Probability{
		storage: storage,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var _ service.GoalPredictor = (*Probability)(nil)

// PredictGoal scores one goal. Goals without a deadline, or already at
// target, score 100 with the deadline left as is.
func (p *Probability) PredictGoal(ctx context.Context, owner string, goal model.SavingsGoal, asOf time.Time) (service.GoalOutlook, error) {
	outlook := service.GoalOutlook{
		Probability:       decimal.NewFromInt(100),
		SuggestedDeadline: goal.Deadline,
		ConfidenceLow:     goal.CurrentAmount,
		ConfidenceHigh:    goal.CurrentAmount,
	}
	if goal.Deadline == nil || !goal.Remaining().IsPositive() {
		return outlook, nil
	}

	history, err := p.monthlySurplus(ctx, owner, asOf)
	if err != nil {
		return service.GoalOutlook{}, err
	}

	slope, intercept := fitLine(cumulative(history))
	avg := mean(history)

	current := goal.CurrentAmount.InexactFloat64()
	target := goal.TargetAmount.InexactFloat64()

	// Extend the cumulative-surplus trend to the deadline month.
	monthsLeft := monthsUntil(asOf, *goal.Deadline)
	predictedIdx := float64(len(history) + monthsLeft - 1)
	predictedTotal := current + slope*predictedIdx + intercept

	prob := 100.0
	if predictedTotal < target {
		prob = math.Min(math.Max(predictedTotal/target, 0), 1) * 100
	}
	outlook.Probability = decimal.NewFromFloat(prob).Round(2)

	// The suggested deadline follows the trend slope, falling back to the
	// plain average when the trend points down.
	pace := slope
	if pace <= 0 {
		pace = avg
	}
	months := maxOutlookMonths
	if pace > 0 {
		months = int(math.Ceil(goal.Remaining().InexactFloat64() / pace))
		if months < 1 {
			months = 1
		}
		if months > maxOutlookMonths {
			months = maxOutlookMonths
		}
	}
	suggested := asOf.UTC().AddDate(0, months, 0)
	outlook.SuggestedDeadline = &suggested

	low, high := p.confidence(history, avg, current, monthsLeft)
	outlook.ConfidenceLow = toMoney(low)
	outlook.ConfidenceHigh = toMoney(high)

	return outlook, nil
}

// monthlySurplus returns income − expense for each of the last
// surplusWindow full calendar months, oldest first. The month containing
// asOf is excluded; it is still in flight.
func (p *Probability) monthlySurplus(ctx context.Context, owner string, asOf time.Time) ([]float64, error) {
	u := asOf.UTC()
	out := make([]float64, 0, surplusWindow)
	for i := surplusWindow; i > 0; i-- {
		start := time.Date(u.Year(), u.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)

		income, err := p.storage.SumEntries(ctx, owner, model.KindIncome, &start, &end)
		if err != nil {
			return nil, fmt.Errorf("failed to sum income: %w", err)
		}
		expense, err := p.storage.SumEntries(ctx, owner, model.KindExpense, &start, &end)
		if err != nil {
			return nil, fmt.Errorf("failed to sum expenses: %w", err)
		}
		out = append(out, income.Sub(expense).InexactFloat64())
	}
	return out, nil
}

// confidence simulates the remaining months and returns the 5th and 95th
// percentile final balances. Monthly draws are normal around the historic
// average; a flat history falls back to a uniform spread of
// ±lowDataVariance. Draws never go below zero.
func (p *Probability) confidence(history []float64, avg, current float64, monthsLeft int) (float64, float64) {
	std := stddev(history)

	totals := make([]float64, simulationRuns)
	for i := range totals {
		sum := 0.0
		for m := 0; m < monthsLeft; m++ {
			var draw float64
			if std > 0 {
				draw = p.rng.NormFloat64()*std + avg
			} else {
				draw = avg * (1 + (p.rng.Float64()*2-1)*lowDataVariance)
			}
			sum += math.Max(draw, 0)
		}
		totals[i] = current + sum
	}
	sort.Float64s(totals)
	return percentile(totals, 5), percentile(totals, 95)
}

// monthsUntil counts calendar months from asOf to the deadline, at least 1.
func monthsUntil(asOf, deadline time.Time) int {
	a, d := asOf.UTC(), deadline.UTC()
	months := (d.Year()-a.Year())*12 + int(d.Month()) - int(a.Month())
	if months < 1 {
		return 1
	}
	return months
}

func cumulative(values []float64) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		out[i] = sum
	}
	return out
}

// fitLine returns the least-squares slope and intercept of y over
// x = 0..len(y)-1.
func fitLine(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	if n == 0 {
		return 0, 0
	}
	xMean := (n - 1) / 2
	yMean := mean(y)

	num, den := 0.0, 0.0
	for i, v := range y {
		dx := float64(i) - xMean
		num += dx * (v - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}
	slope = num / den
	return slope, yMean - slope*xMean
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// percentile interpolates linearly between sorted samples.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
