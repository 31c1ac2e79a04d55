package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMigration(t *testing.T) {
	t.Run("creates up and down files", func(t *testing.T) {
		dir := t.TempDir()

		mf, err := CreateMigration(dir, "Add Payment Invoices", "payment invoice tables")
		require.NoError(t, err)

		assert.Len(t, mf.Version, 14)
		assert.Contains(t, mf.UpPath, "add_payment_invoices.up.sql")
		assert.Contains(t, mf.DownPath, "add_payment_invoices.down.sql")

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "payment invoice tables")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.Contains(t, string(down), "down")
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "migrations")

		_, err := CreateMigration(dir, "init", "")
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("lists one entry per pair", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"20250301000000_create_payment_tables.up.sql",
			"20250301000000_create_payment_tables.down.sql",
			"20250301000001_create_fiscal_receipts.up.sql",
			"20250301000001_create_fiscal_receipts.down.sql",
			"notes.txt",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql"), 0644))
		}

		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"20250301000000_create_payment_tables",
			"20250301000001_create_fiscal_receipts",
		}, names)
	})

	t.Run("missing directory yields empty list", func(t *testing.T) {
		names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Add Payment Invoices": "add_payment_invoices",
		"fix-receipt-index":    "fix_receipt_index",
		"already_snake":        "already_snake",
		"  spaced  out  ":      "spaced_out",
		"Drop!!Bad??Chars":     "dropbadchars",
	}
	for input, want := range cases {
		assert.Equal(t, want, slugify(input), "name %q", input)
	}
}
