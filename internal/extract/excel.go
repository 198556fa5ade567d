package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hyperjump/tansaku/internal/models"
	"github.com/xuri/excelize/v2"
)

// Reserved column headers; every other header names an attribute.
const (
	columnGUID   = "guid"
	columnStatus = "status"
)

// extractExcel reads one entity type per sheet: the sheet name is the type name and the
// first row holds attribute names. Empty cells leave the attribute unset.
func extractExcel(content []byte) (*Batch, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	batch := &Batch{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		header := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = strings.TrimSpace(h)
		}
		batch.Types = append(batch.Types, &models.TypeDef{Name: sheet})
		for _, row := range rows[1:] {
			if in := entityFromRow(sheet, header, row); in != nil {
				batch.Entities = append(batch.Entities, in)
			}
		}
	}
	return batch, nil
}

// entityFromRow returns nil for a row with no values.
func entityFromRow(typeName string, header, row []string) *models.EntityInput {
	in := &models.EntityInput{TypeName: typeName, Attributes: map[string]interface{}{}}
	empty := true
	for i, cell := range row {
		if i >= len(header) || header[i] == "" {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		empty = false
		switch strings.ToLower(header[i]) {
		case columnGUID:
			in.GUID = cell
		case columnStatus:
			in.Status = strings.ToUpper(cell)
		default:
			in.Attributes[header[i]] = cell
		}
	}
	if empty {
		return nil
	}
	return in
}
