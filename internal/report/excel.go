package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Column widths per dataset, indexed like the column slices in csv.go.
var (
	weatherWidths = []float64{24, 12, 10, 10, 13, 10, 12}
	stationWidths = []float64{24, 14, 12, 11, 10}
	cropWidths    = []float64{24, 18, 18, 14, 12, 30}
	summaryWidths = []float64{24, 18, 12, 11, 11, 12, 13, 14, 11, 26, 30}
)

func renderExcel(in Input) (*File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#2E7D32"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center", Vertical: "center", WrapText: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("excel: header style: %w", err)
	}

	if in.Options.IncludeWeather {
		if err := writeSheet(f, headerStyle, "Weather", weatherColumns, csvWeatherRows(in), weatherWidths); err != nil {
			return nil, fmt.Errorf("excel: weather: %w", err)
		}
	}
	if in.Options.IncludeStation {
		if err := writeSheet(f, headerStyle, "Station ET", stationColumns, csvStationRows(in), stationWidths); err != nil {
			return nil, fmt.Errorf("excel: station: %w", err)
		}
	}
	if in.Options.IncludeCrops {
		if err := writeSheet(f, headerStyle, "Crops", cropColumns, csvCropRows(in), cropWidths); err != nil {
			return nil, fmt.Errorf("excel: crops: %w", err)
		}
	}
	if in.Options.IncludeSummary {
		if err := writeSheet(f, headerStyle, "Water Balance", summaryColumns, csvSummaryRows(in), summaryWidths); err != nil {
			return nil, fmt.Errorf("excel: summary: %w", err)
		}
	}

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("excel: write: %w", err)
	}
	return &File{
		Name:        fileName(FormatExcel, in.GeneratedAt),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

// writeSheet builds one sheet from the same row data the CSV renderer uses,
// so the two formats cannot drift apart. Numeric-looking cells are written
// as numbers.
func writeSheet(f *excelize.File, headerStyle int, name string, columns []string, rows [][]string, widths []float64) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	for i, header := range titleCased(columns) {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, header); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if n, perr := strconv.ParseFloat(value, 64); perr == nil {
				err = f.SetCellValue(name, cell, n)
			} else {
				err = f.SetCellValue(name, cell, value)
			}
			if err != nil {
				return err
			}
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
