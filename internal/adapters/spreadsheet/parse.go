// Package spreadsheet turns uploaded price sheets (.xlsx, .xls, .csv) into
// catalog products and writes edited catalogs back out as CSV. Raw rows are
// kept verbatim so exports preserve columns the importer does not understand.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/pricelens/internal/domain"
	"github.com/phenrril/pricelens/internal/validation"
)

// RawRow is one spreadsheet row keyed by header. Values stay as the sheet
// cell text so exports round-trip untouched columns.
type RawRow map[string]string

// Result is an ingested spreadsheet: the mapped products plus the raw rows
// (positionally aligned with Products) needed to rebuild the file on export.
type Result struct {
	Products []domain.Product
	RawRows  []RawRow
	Headers  []string
	Skipped  []domain.SkippedRow
}

var (
	priceCleanRe = regexp.MustCompile(`[₹$€£,\s]`)
	urlRe        = regexp.MustCompile(`(?i)https?://\S+|www\.\S+|[a-zA-Z0-9-]+\.[a-zA-Z]{2,}`)
)

var (
	idKeys       = []string{"Product ID", "ID", "id", "SKU"}
	nameKeys     = []string{"Product Name", "ProductName", "Name", "name", "Title"}
	skuKeys      = []string{"SKU", "sku", "Product Code"}
	categoryKeys = []string{"Category", "Sub-category", "category"}
	brandKeys    = []string{"Brand", "brand", "Manufacturer"}
	itemKeys     = []string{"Net Price (₹)", "Net Price", "Item Price"}
	originalKeys = []string{"Original Price", "MRP", "List Price", "originalPrice"}
	sellingKeys  = []string{"Selling Price", "Price", "Sale Price", "sellingPrice"}
	costKeys     = []string{"Cost Price", "Cost", "costPrice"}
)

// Parse reads the sheet named by filename's extension and maps every data row
// to a product. Unknown headers are tolerated; missing prices fall back to
// sane defaults so a partially filled sheet still loads.
func Parse(filename string, data []byte, thresholds domain.PriceThreshold) (*Result, error) {
	var (
		headers []string
		rows    []RawRow
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		headers, rows, err = readExcel(data)
	case ".csv":
		headers, rows, err = readCSV(data)
	default:
		return nil, fmt.Errorf("unsupported file type %q, expected .xlsx, .xls or .csv", filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Headers: headers}
	for i, row := range rows {
		if empty(row) {
			res.Skipped = append(res.Skipped, domain.SkippedRow{
				RowNumber: i + 2, // 1-based, after the header row
				Reason:    "empty row",
			})
			continue
		}
		res.Products = append(res.Products, mapProduct(row, headers, len(res.Products), thresholds))
		res.RawRows = append(res.RawRows, row)
	}
	return res, nil
}

func readExcel(data []byte) ([]string, []RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return tabulate(raw)
}

func readCSV(data []byte) ([]string, []RawRow, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	raw, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return tabulate(raw)
}

func tabulate(raw [][]string) ([]string, []RawRow, error) {
	if len(raw) == 0 {
		return nil, nil, fmt.Errorf("sheet is empty")
	}
	headers := make([]string, 0, len(raw[0]))
	for _, h := range raw[0] {
		headers = append(headers, strings.TrimSpace(h))
	}

	rows := make([]RawRow, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(RawRow, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			if j < len(cells) {
				row[h] = strings.TrimSpace(cells[j])
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func empty(row RawRow) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func mapProduct(row RawRow, headers []string, index int, thresholds domain.PriceThreshold) domain.Product {
	id := pick(row, idKeys)
	if id == "" {
		id = fmt.Sprintf("PROD-%d", index+1)
	}
	name := pick(row, nameKeys)
	if name == "" {
		name = fmt.Sprintf("Product %d", index+1)
	}
	sku := pick(row, skuKeys)
	if sku == "" {
		sku = id
	}
	category := pick(row, categoryKeys)
	if category == "" {
		category = "Uncategorized"
	}

	itemPrice := parsePrice(pick(row, itemKeys))
	originalPrice := parsePrice(pick(row, originalKeys))
	if originalPrice == 0 {
		originalPrice = itemPrice
	}
	if originalPrice == 0 {
		originalPrice = 100
	}
	sellingPrice := parsePrice(pick(row, sellingKeys))
	if sellingPrice == 0 {
		sellingPrice = itemPrice
	}
	if sellingPrice == 0 {
		sellingPrice = originalPrice
	}
	costPrice := parsePrice(pick(row, costKeys))
	if costPrice == 0 {
		costPrice = sellingPrice * 0.6
	}

	p := domain.Product{
		ID:            id,
		Name:          name,
		SKU:           sku,
		Category:      category,
		Brand:         pick(row, brandKeys),
		OriginalPrice: originalPrice,
		SellingPrice:  sellingPrice,
		CostPrice:     costPrice,
		CompetitorURL: extractURL(row, headers),
	}
	p.RecalcDerived()
	p.Status = validation.DetermineStatus(p, thresholds)
	return p
}

func pick(row RawRow, keys []string) string {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// parsePrice strips currency symbols, separators and spaces, so values like
// "₹1,70,000" or "$ 1,299.50" parse cleanly. Unparseable input yields 0.
func parsePrice(value string) float64 {
	if value == "" {
		return 0
	}
	cleaned := priceCleanRe.ReplaceAllString(value, "")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

// extractURL finds the seller's reference website in the row, scanning
// columns in sheet order. Dedicated URL-ish columns win; otherwise any cell
// containing something URL-shaped.
func extractURL(row RawRow, headers []string) string {
	isURLColumn := func(key string) bool {
		k := strings.ToLower(key)
		return strings.Contains(k, "url") || strings.Contains(k, "website") ||
			strings.Contains(k, "link") || strings.Contains(k, "competitor")
	}

	for _, key := range headers {
		if isURLColumn(key) && row[key] != "" {
			if m := urlRe.FindString(row[key]); m != "" {
				return withScheme(m)
			}
		}
	}
	for _, key := range headers {
		if isURLColumn(key) || row[key] == "" {
			continue
		}
		if m := urlRe.FindString(row[key]); m != "" {
			return withScheme(m)
		}
	}
	return ""
}

func withScheme(u string) string {
	if strings.HasPrefix(u, "http") {
		return u
	}
	return "https://" + u
}
