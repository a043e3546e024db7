package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/avelier/cascade/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage_MigratesFreshDatabase(t *testing.T) {
	viper.Set("database.path", filepath.Join(t.TempDir(), "cascade.db"))
	defer viper.Reset()

	store, err := openStorage(context.Background())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	// A fresh install must be usable without an explicit migrate run.
	entry := &model.Entry{
		Owner:  "lena",
		Kind:   model.KindIncome,
		Name:   "Salary",
		Amount: decimal.RequireFromString("100.00"),
		Date:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateEntry(context.Background(), entry))
	assert.NotZero(t, entry.ID)
}

func TestParseAmountArg(t *testing.T) {
	got, err := parseAmountArg(" $25.504 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("25.50")), "got %s", got)

	_, err = parseAmountArg("-5")
	assert.Error(t, err)

	_, err = parseAmountArg("abc")
	assert.Error(t, err)
}
