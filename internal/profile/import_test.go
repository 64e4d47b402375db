package profile

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeSheet writes an xlsx file with the given rows (row 1 included).
func writeSheet(t *testing.T, rows [][]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "profiles.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

var header = []string{"email", "password", "proxy", "2fa_secret"}

func TestImportMixedValidity(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Create(NameFromEmail("dup@b.com"), Info{Email: "dup@b.com"}))

	path := writeSheet(t, [][]string{
		header,
		{"new@b.com", "pw", "1.2.3.4:8080", "JBSWY3DPEHPK3PXP"},
		{"", "pw", "", ""},
		{"dup@b.com", "pw", "", ""},
	})

	ok, skipped, messages := s.ImportFromExcel(path)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, skipped)
	require.Len(t, messages, 2)
	assert.Equal(t, "Row 3: Missing email, skipped", messages[0])
	assert.Equal(t, "Row 4: Profile 'dup@b.com' already exists, skipped", messages[1])

	rec, found := s.Get("new_at_b_com")
	require.True(t, found)
	assert.Equal(t, "new@b.com", rec.Email)
	assert.Equal(t, "Imported from Excel (Row 2)", rec.Description)
	assert.Equal(t, "1.2.3.4:8080", rec.Proxy)
}

func TestImportIdempotence(t *testing.T) {
	s := newTestStore(t)

	path := writeSheet(t, [][]string{
		header,
		{"one@b.com", "pw1", "", ""},
		{"two@b.com", "pw2", "", ""},
	})

	ok, skipped, _ := s.ImportFromExcel(path)
	require.Equal(t, 2, ok)
	require.Equal(t, 0, skipped)
	count := s.Len()

	// Re-running the same file must import nothing and report every row as
	// a duplicate skip.
	ok, skipped, messages := s.ImportFromExcel(path)
	assert.Equal(t, 0, ok)
	assert.Equal(t, 2, skipped)
	require.Len(t, messages, 2)
	for i, msg := range messages {
		assert.Contains(t, msg, fmt.Sprintf("Row %d:", i+2))
		assert.Contains(t, msg, "already exists, skipped")
	}
	assert.Equal(t, count, s.Len())
}

func TestImportSkipsEmptyRowsSilently(t *testing.T) {
	s := newTestStore(t)

	path := writeSheet(t, [][]string{
		header,
		{"", "", "", ""},
		{"one@b.com", "pw", "", ""},
	})

	ok, skipped, messages := s.ImportFromExcel(path)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, skipped)
	assert.Empty(t, messages)
}

func TestImportReportsRowWithOnlyExtraColumns(t *testing.T) {
	s := newTestStore(t)

	// Content in a column past the four recognized ones means the row is not
	// empty; it must be reported as missing its email, not dropped silently.
	path := writeSheet(t, [][]string{
		header,
		{"", "", "", "", "stray note"},
		{"one@b.com", "pw", "", ""},
	})

	ok, skipped, messages := s.ImportFromExcel(path)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, skipped)
	require.Len(t, messages, 1)
	assert.Equal(t, "Row 2: Missing email, skipped", messages[0])
}

func TestImportLiteralNoneEmail(t *testing.T) {
	s := newTestStore(t)

	path := writeSheet(t, [][]string{
		header,
		{"None", "pw", "", ""},
	})

	ok, skipped, messages := s.ImportFromExcel(path)
	assert.Equal(t, 0, ok)
	assert.Equal(t, 1, skipped)
	require.Len(t, messages, 1)
	assert.Equal(t, "Row 2: Missing email, skipped", messages[0])
}

func TestImportMissingTrailingColumns(t *testing.T) {
	s := newTestStore(t)

	path := writeSheet(t, [][]string{
		header,
		{"short@b.com", "pw"},
	})

	ok, skipped, _ := s.ImportFromExcel(path)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, skipped)

	rec, found := s.Get(NameFromEmail("short@b.com"))
	require.True(t, found)
	assert.Empty(t, rec.Proxy)
	assert.Empty(t, rec.TwoFASecret)
}

func TestImportUnreadableFile(t *testing.T) {
	s := newTestStore(t)

	ok, skipped, messages := s.ImportFromExcel(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Equal(t, 0, ok)
	assert.Equal(t, 0, skipped)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "Failed to read Excel file:")
}

func TestWriteSampleExcelImportsCleanly(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "sample.xlsx")
	require.NoError(t, WriteSampleExcel(path))

	ok, skipped, messages := s.ImportFromExcel(path)
	assert.Equal(t, 6, ok)
	assert.Equal(t, 0, skipped)
	assert.Empty(t, messages)
}

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"user@example.com", "user_at_example_com"},
		{"a.b@c.d", "a_b_at_c_d"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NameFromEmail(tt.email))
	}
}
