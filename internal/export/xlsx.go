// Package export renders the inventory table into downloadable formats.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vyrodovalexey/item-management/internal/model"
)

// SheetName is the worksheet holding the inventory table.
const SheetName = "Items"

// ContentTypeXLSX is the MIME type of the workbook.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// numFmtTwoDecimals is the built-in "0.00" number format.
const numFmtTwoDecimals = 2

// Headers are the table column titles.
var Headers = []string{"ID", "Name", "Category", "Price", "Icon"}

// WriteXLSX writes items as an Excel workbook to w, one row per item in order.
func WriteXLSX(w io.Writer, items []model.Item) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	header := make([]any, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, it := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{it.ID, it.Name, it.Category.String(), it.Price, it.Category.Icon()}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("writing item %d: %w", it.ID, err)
		}
	}

	if len(items) > 0 {
		priceStyle, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
		if err != nil {
			return fmt.Errorf("creating price style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(4, len(items)+1)
		if err := f.SetCellStyle(SheetName, "D2", last, priceStyle); err != nil {
			return fmt.Errorf("styling prices: %w", err)
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 8)
	_ = f.SetColWidth(SheetName, "B", "B", 30)
	_ = f.SetColWidth(SheetName, "C", "E", 22)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}
