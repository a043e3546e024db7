package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/avelier/cascade/internal/classify"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// OFXResult reports what an OFX import pass produced.
type OFXResult struct {
	Imported   int
	Duplicates int
	Blocked    int
}

// OFXImporter reads OFX/QFX bank statements into the ledger: debits become
// expense entries, credits become income entries. Transactions already in
// the ledger are skipped by content hash.
type OFXImporter struct {
	storage    service.Storage
	classifier service.Classifier
}

// NewOFXImporter returns an importer writing through the given storage.
func NewOFXImporter(storage service.Storage, classifier service.Classifier) *OFXImporter {
	return &OFXImporter{storage: storage, classifier: classifier}
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRegex  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting defects in files exported by real
// banks: leading blank lines, mixed-case SEVERITY values, and SGML-style
// tags missing their closing bracket.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagRegex.ReplaceAllString(content, "$1>")
}

// Import parses the statement and writes its transactions as ledger
// entries for owner. With dryRun set, nothing is written and the result
// reports what would happen.
func (i *OFXImporter) Import(ctx context.Context, owner string, r io.Reader, dryRun bool) (OFXResult, error) {
	var result OFXResult

	content, err := io.ReadAll(r)
	if err != nil {
		return result, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return result, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []ofxgo.Transaction
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			transactions = append(transactions, stmt.BankTranList.Transactions...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			transactions = append(transactions, stmt.BankTranList.Transactions...)
		}
	}

	seen, err := i.existingHashes(ctx, owner)
	if err != nil {
		return result, err
	}

	for _, ofxTx := range transactions {
		entry, ok := i.convertTransaction(owner, ofxTx)
		if !ok {
			result.Blocked++
			continue
		}

		hash := entryHash(entry)
		if seen[hash] {
			result.Duplicates++
			continue
		}
		seen[hash] = true

		if !dryRun {
			if err := i.storage.CreateEntry(ctx, entry); err != nil {
				return result, fmt.Errorf("failed to import %q: %w", entry.Name, err)
			}
		}
		result.Imported++
	}

	slog.Info("imported OFX statement",
		"owner", owner,
		"imported", result.Imported,
		"duplicates", result.Duplicates,
		"dry_run", dryRun)
	return result, nil
}

// convertTransaction maps one OFX transaction onto a ledger entry. OFX
// amounts are negative for debits.
func (i *OFXImporter) convertTransaction(owner string, ofxTx ofxgo.Transaction) (*model.Entry, bool) {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(2))
	if err != nil || amount.IsZero() {
		return nil, false
	}

	kind := model.KindIncome
	if amount.IsNegative() {
		kind = model.KindExpense
		amount = amount.Neg()
	}

	name := merchantName(ofxTx)
	if name == "" {
		return nil, false
	}

	var category string
	if kind == model.KindIncome {
		switch fmt.Sprintf("%v", ofxTx.TrnType) {
		case "INT":
			category = "Interest Income"
		default:
			category = classify.NormalizeIncomeCategory(name)
		}
	} else {
		category = i.classifier.PredictCategory(name)
	}

	return &model.Entry{
		Owner:    owner,
		Kind:     kind,
		Name:     name,
		Amount:   amount,
		Date:     ofxTx.DtPosted.Time.UTC(),
		Category: category,
	}, true
}

var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

var genericDescriptions = map[string]bool{
	"DEBIT":           true,
	"CREDIT":          true,
	"PURCHASE":        true,
	"PAYMENT":         true,
	"POS TRANSACTION": true,
	"CARD PURCHASE":   true,
}

// merchantName extracts a usable description: PAYEE when present, MEMO
// when NAME is generic, with processor prefixes and leading MM/DD date
// stamps stripped.
func merchantName(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && genericDescriptions[strings.ToUpper(strings.TrimSpace(name))] {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

// existingHashes builds the dedupe set from entries already in the ledger.
func (i *OFXImporter) existingHashes(ctx context.Context, owner string) (map[string]bool, error) {
	entries, err := i.storage.ListEntries(ctx, owner, service.EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load existing entries: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for idx := range entries {
		seen[entryHash(&entries[idx])] = true
	}
	return seen, nil
}

// entryHash fingerprints an entry by the fields a re-imported statement
// would reproduce.
func entryHash(e *model.Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s",
		e.Owner, e.Kind, e.Date.UTC().Format("2006-01-02"), e.Name, e.Amount.StringFixed(2))
	return hex.EncodeToString(h.Sum(nil))
}
