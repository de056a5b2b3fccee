package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"

	"github.com/phenrril/pricelens/internal/domain"
)

// exportNetKeys is the preference order when deciding which column holds the
// price to overwrite on export. MRP and List Price are deliberately absent:
// exports must never clobber the original/list price.
var exportNetKeys = []string{
	"Net Price (₹)",
	"Net Price",
	"NetPrice",
	"Item Price",
	"Selling Price",
	"Sale Price",
	"Price",
}

var exportNetRe = regexp.MustCompile(`(?i)net\s*price|selling\s*price|item\s*price|sale\s*price|^price$`)

const addedNetHeader = "Net Price"

// ExportCSV rebuilds the uploaded sheet as CSV with the current selling
// prices written into each row's net-price column. Rows pair with products by
// position. Columns the importer never understood pass through unchanged and
// header order is preserved; when no price column exists a "Net Price" column
// is appended.
func ExportCSV(products []domain.Product, rawRows []RawRow, headers []string) ([]byte, error) {
	if len(rawRows) == 0 {
		return nil, fmt.Errorf("no rows to export")
	}

	outHeaders := make([]string, len(headers))
	copy(outHeaders, headers)
	addedNet := false

	rows := make([]RawRow, len(rawRows))
	for i, raw := range rawRows {
		row := make(RawRow, len(raw)+1)
		for k, v := range raw {
			row[k] = v
		}
		rows[i] = row

		if i >= len(products) {
			continue
		}
		price := strconv.FormatFloat(products[i].SellingPrice, 'f', -1, 64)

		if key := netPriceKey(row, headers); key != "" {
			row[key] = price
			continue
		}
		row[addedNetHeader] = price
		if !addedNet {
			outHeaders = append(outHeaders, addedNetHeader)
			addedNet = true
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(outHeaders); err != nil {
		return nil, err
	}
	record := make([]string, len(outHeaders))
	for _, row := range rows {
		for j, h := range outHeaders {
			record[j] = row[h]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func netPriceKey(row RawRow, headers []string) string {
	for _, k := range exportNetKeys {
		if _, ok := row[k]; ok {
			return k
		}
	}
	for _, k := range headers {
		if _, ok := row[k]; ok && exportNetRe.MatchString(k) {
			return k
		}
	}
	return ""
}
