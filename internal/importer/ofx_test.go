package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/avelier/cascade/internal/classify"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample OFX statement with two debits and one credit, deliberately using
// SGML-style tags and a lowercase SEVERITY to exercise preprocessing.
const sampleOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>Info
</STATUS>
<DTSERVER>20250315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250301120000[0:GMT]
<DTEND>20250331120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250305120000[0:GMT]
<TRNAMT>-25.50
<FITID>2025030501
<NAME>POS PURCHASE COFFEE HOUSE
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250310120000[0:GMT]
<TRNAMT>-125.00
<FITID>2025031001
<NAME>SUPERMARKET DOWNTOWN
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250314120000[0:GMT]
<TRNAMT>2500.00
<FITID>2025031401
<NAME>PAYCHECK ACME CORP
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20250331120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestOFXImport(t *testing.T) {
	store := newTestStorage(t)
	imp := NewOFXImporter(store, classify.NewKeywordClassifier())
	ctx := context.Background()

	result, err := imp.Import(ctx, "lena", strings.NewReader(sampleOFX), false)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Zero(t, result.Duplicates)

	incomes, err := store.ListEntries(ctx, "lena", service.EntryFilter{Kind: model.KindIncome})
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.True(t, incomes[0].Amount.Equal(decimal.RequireFromString("2500.00")))

	expenses, err := store.ListEntries(ctx, "lena", service.EntryFilter{Kind: model.KindExpense})
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	// Debit amounts flip positive.
	for _, e := range expenses {
		assert.True(t, e.Amount.IsPositive())
	}
	// Processor prefix stripped.
	assert.Equal(t, "SUPERMARKET DOWNTOWN", expenses[0].Name)
	assert.Equal(t, "COFFEE HOUSE", expenses[1].Name)
	assert.Equal(t, "Food & Dining", expenses[0].Category)
}

func TestOFXImport_DedupeOnReimport(t *testing.T) {
	store := newTestStorage(t)
	imp := NewOFXImporter(store, classify.NewKeywordClassifier())
	ctx := context.Background()

	first, err := imp.Import(ctx, "lena", strings.NewReader(sampleOFX), false)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Imported)

	second, err := imp.Import(ctx, "lena", strings.NewReader(sampleOFX), false)
	require.NoError(t, err)
	assert.Zero(t, second.Imported)
	assert.Equal(t, 3, second.Duplicates)

	entries, err := store.ListEntries(ctx, "lena", service.EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestOFXImport_DryRun(t *testing.T) {
	store := newTestStorage(t)
	imp := NewOFXImporter(store, classify.NewKeywordClassifier())
	ctx := context.Background()

	result, err := imp.Import(ctx, "lena", strings.NewReader(sampleOFX), true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)

	entries, err := store.ListEntries(ctx, "lena", service.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
