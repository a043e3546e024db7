// Package importer loads ledger entries from external files: CSV exports
// with messy headers, and OFX/QFX bank statements.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avelier/cascade/internal/classify"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

// headerVariants maps each logical column onto the header spellings seen
// in real bank and spreadsheet exports.
var headerVariants = map[string][]string{
	"date": {
		"date", "transaction_date", "transaction date", "posted date",
		"income_date", "expense_date", "day", "day_of_transaction",
	},
	"name": {
		"name", "expense_name", "item", "source", "source_name",
		"source_title", "source_label", "description",
		"transaction details", "memo",
	},
	"amount": {
		"amount", "value", "price", "cost", "amount_paid",
		"amount_received", "money",
	},
	"debit":    {"debit"},
	"credit":   {"credit"},
	"category": {"category", "type", "group", "category_name", "category_title", "category_label"},
}

// dateLayouts are tried in order; month-first layouts win over day-first
// when a date is ambiguous.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// CSVResult reports what an import pass did with each row.
type CSVResult struct {
	Imported int
	Skipped  int
	Blocked  int
}

// CSVImporter reads income or expense rows from a CSV export into the
// ledger. Rows with missing dates, names, or amounts are skipped; expense
// rows that would push lifetime expense over lifetime income are blocked.
type CSVImporter struct {
	storage    service.Storage
	classifier service.Classifier
}

// NewCSVImporter returns an importer writing through the given storage and
// predicting expense categories with the given classifier.
func NewCSVImporter(storage service.Storage, classifier service.Classifier) *CSVImporter {
	return &CSVImporter{storage: storage, classifier: classifier}
}

// Import reads all rows from r as entries of the given kind for owner.
// Progress is drawn to out; pass io.Discard to silence it.
func (i *CSVImporter) Import(ctx context.Context, owner string, kind model.EntryKind, r io.Reader, out io.Writer) (CSVResult, error) {
	var result CSVResult

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return result, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return result, fmt.Errorf("CSV has no data rows")
	}

	columns := normalizeHeaders(records[0])
	if _, ok := columns["date"]; !ok {
		return result, fmt.Errorf("CSV has no recognizable date column")
	}

	totalIncome, err := i.storage.SumEntries(ctx, owner, model.KindIncome, nil, nil)
	if err != nil {
		return result, err
	}
	totalExpense, err := i.storage.SumEntries(ctx, owner, model.KindExpense, nil, nil)
	if err != nil {
		return result, err
	}

	bar := progressbar.NewOptions(len(records)-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("Importing %s rows...", kind)),
	)

	for _, row := range records[1:] {
		_ = bar.Add(1)

		entry, ok := i.rowToEntry(owner, kind, columns, row)
		if !ok {
			result.Skipped++
			continue
		}

		if kind == model.KindExpense {
			if totalExpense.Add(entry.Amount).GreaterThan(totalIncome) {
				result.Blocked++
				continue
			}
		}

		if err := i.storage.CreateEntry(ctx, entry); err != nil {
			result.Skipped++
			continue
		}

		if kind == model.KindIncome {
			totalIncome = totalIncome.Add(entry.Amount)
		} else {
			totalExpense = totalExpense.Add(entry.Amount)
		}
		result.Imported++
	}

	_ = bar.Finish()
	return result, nil
}

// rowToEntry converts one CSV row, reporting false for rows missing
// essential data.
func (i *CSVImporter) rowToEntry(owner string, kind model.EntryKind, columns map[string]int, row []string) (*model.Entry, bool) {
	date, ok := parseDate(cell(row, columns, "date"))
	if !ok {
		return nil, false
	}

	name := strings.TrimSpace(cell(row, columns, "name"))
	if name == "" {
		return nil, false
	}

	amount, ok := parseAmount(columns, row, kind)
	if !ok || !amount.IsPositive() {
		return nil, false
	}

	var category string
	raw := strings.TrimSpace(cell(row, columns, "category"))
	switch {
	case kind == model.KindIncome:
		category = classify.NormalizeIncomeCategory(raw)
	case raw != "":
		category = classify.NormalizeExpenseCategory(raw)
	default:
		category = i.classifier.PredictCategory(name)
	}

	return &model.Entry{
		Owner:    owner,
		Kind:     kind,
		Name:     name,
		Amount:   amount.Round(2),
		Date:     date,
		Category: category,
	}, true
}

// parseAmount reads the amount from a single Amount column or a
// Debit/Credit pair. For expenses a credit is a reversal and is skipped.
func parseAmount(columns map[string]int, row []string, kind model.EntryKind) (decimal.Decimal, bool) {
	if kind == model.KindExpense {
		if debit := strings.TrimSpace(cell(row, columns, "debit")); debit != "" {
			return parseMoney(debit)
		}
		if credit := strings.TrimSpace(cell(row, columns, "credit")); credit != "" {
			return decimal.Zero, false
		}
	}
	return parseMoney(strings.TrimSpace(cell(row, columns, "amount")))
}

func parseMoney(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// normalizeHeaders maps logical column names to their index in the header
// row, matching case-insensitively against known spelling variants.
func normalizeHeaders(header []string) map[string]int {
	columns := make(map[string]int)
	for logical, variants := range headerVariants {
		for idx, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			for _, v := range variants {
				if h == v {
					if _, taken := columns[logical]; !taken {
						columns[logical] = idx
					}
				}
			}
		}
	}
	return columns
}

func cell(row []string, columns map[string]int, key string) string {
	idx, ok := columns[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
