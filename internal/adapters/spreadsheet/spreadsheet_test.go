package spreadsheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/validation"
)

func parseCSV(t *testing.T, csv string) *Result {
	t.Helper()
	res, err := Parse("catalog.csv", []byte(csv), validation.DefaultThresholds)
	require.NoError(t, err)
	return res
}

func TestParseCSVMapsColumns(t *testing.T) {
	csv := "SKU,Product Name,Category,Brand,MRP,Net Price (₹),Cost Price,Competitor URL\n" +
		"SKU-1,Steel Bottle,Kitchen,Acme,\"1,200\",\"₹950\",600,https://flipkart.com/bottle/p/itm9\n"

	res := parseCSV(t, csv)
	require.Len(t, res.Products, 1)
	p := res.Products[0]

	assert.Equal(t, "SKU-1", p.ID)
	assert.Equal(t, "SKU-1", p.SKU)
	assert.Equal(t, "Steel Bottle", p.Name)
	assert.Equal(t, "Kitchen", p.Category)
	assert.Equal(t, "Acme", p.Brand)
	assert.Equal(t, 1200.0, p.OriginalPrice)
	assert.Equal(t, 950.0, p.SellingPrice)
	assert.Equal(t, 600.0, p.CostPrice)
	assert.Equal(t, "https://flipkart.com/bottle/p/itm9", p.CompetitorURL)
	assert.InDelta(t, 20.83, p.DiscountPercent, 0.01)
	assert.InDelta(t, 36.84, p.ProfitMargin, 0.01)
	assert.Equal(t, domain.StatusValid, p.Status)
}

func TestParseDefaultsMissingValues(t *testing.T) {
	csv := "Title,Notes\nMystery Gadget,no pricing yet\n"

	res := parseCSV(t, csv)
	require.Len(t, res.Products, 1)
	p := res.Products[0]

	assert.Equal(t, "PROD-1", p.ID)
	assert.Equal(t, "Mystery Gadget", p.Name)
	assert.Equal(t, "PROD-1", p.SKU)
	assert.Equal(t, "Uncategorized", p.Category)
	assert.Equal(t, 100.0, p.OriginalPrice)
	assert.Equal(t, 100.0, p.SellingPrice)
	assert.Equal(t, 60.0, p.CostPrice)
}

func TestParsePriceFallbackChain(t *testing.T) {
	// item price feeds both original and selling when those columns are absent
	csv := "Product Name,Item Price\nWidget,\"2,500\"\n"
	p := parseCSV(t, csv).Products[0]
	assert.Equal(t, 2500.0, p.OriginalPrice)
	assert.Equal(t, 2500.0, p.SellingPrice)
	assert.Equal(t, 1500.0, p.CostPrice)
}

func TestParseSkipsEmptyRows(t *testing.T) {
	csv := "Product Name,Price\nWidget,100\n,\nGizmo,200\n"

	res := parseCSV(t, csv)
	assert.Len(t, res.Products, 2)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].RowNumber)
	assert.Equal(t, "empty row", res.Skipped[0].Reason)
	// raw rows stay aligned with products
	assert.Len(t, res.RawRows, 2)
	assert.Equal(t, "Gizmo", res.RawRows[1]["Product Name"])
}

func TestParseFindsURLInAnyCell(t *testing.T) {
	csv := "Product Name,Price,Remarks\nWidget,100,also sold on www.amazon.in/widget\n"
	p := parseCSV(t, csv).Products[0]
	assert.Equal(t, "https://www.amazon.in/widget", p.CompetitorURL)
}

func TestParseRejectsUnknownExtension(t *testing.T) {
	_, err := Parse("catalog.pdf", []byte("x"), validation.DefaultThresholds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestParseXLSXFirstSheetOnly(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"SKU", "Product Name", "Net Price"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"S-9", "Desk Lamp", "1499"}))
	_, err := f.NewSheet("Ignored")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Ignored", "A1", &[]interface{}{"SKU"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := Parse("catalog.xlsx", buf.Bytes(), validation.DefaultThresholds)
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "S-9", res.Products[0].SKU)
	assert.Equal(t, 1499.0, res.Products[0].SellingPrice)
}

func TestExportWritesEditedPriceIntoNetColumn(t *testing.T) {
	csv := "SKU,Product Name,MRP,Net Price (₹)\nS-1,Widget,1200,950\n"
	res := parseCSV(t, csv)

	res.Products[0].SellingPrice = 899.5
	out, err := ExportCSV(res.Products, res.RawRows, res.Headers)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "SKU,Product Name,MRP,Net Price (₹)", lines[0])
	assert.Equal(t, "S-1,Widget,1200,899.5", lines[1])
}

func TestExportRegexFallbackHeader(t *testing.T) {
	csv := "SKU,Product Name,Current net  price\nS-1,Widget,950\n"
	res := parseCSV(t, csv)

	res.Products[0].SellingPrice = 900
	out, err := ExportCSV(res.Products, res.RawRows, res.Headers)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, "S-1,Widget,900", lines[1])
}

func TestExportAddsNetPriceColumnWhenAbsent(t *testing.T) {
	csv := "SKU,Product Name\nS-1,Widget\n"
	res := parseCSV(t, csv)

	res.Products[0].SellingPrice = 123
	out, err := ExportCSV(res.Products, res.RawRows, res.Headers)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, "SKU,Product Name,Net Price", lines[0])
	assert.Equal(t, "S-1,Widget,123", lines[1])
}

func TestExportPreservesUnknownColumns(t *testing.T) {
	csv := "SKU,Product Name,Warehouse Bin,Price\nS-1,Widget,B-17,950\n"
	res := parseCSV(t, csv)

	res.Products[0].SellingPrice = 975
	out, err := ExportCSV(res.Products, res.RawRows, res.Headers)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, "S-1,Widget,B-17,975", lines[1])
}

func TestExportDoesNotMutateRawRows(t *testing.T) {
	csv := "SKU,Product Name,Price\nS-1,Widget,950\n"
	res := parseCSV(t, csv)

	res.Products[0].SellingPrice = 10
	_, err := ExportCSV(res.Products, res.RawRows, res.Headers)
	require.NoError(t, err)
	assert.Equal(t, "950", res.RawRows[0]["Price"])
}
