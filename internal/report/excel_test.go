package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestBuildExcel_OneSheetPerDataset(t *testing.T) {
	in := fixtureInput(Options{
		Format:         FormatExcel,
		IncludeWeather: true,
		IncludeStation: true,
		IncludeCrops:   true,
		IncludeSummary: true,
	})
	f, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	want := []string{"Weather", "Station ET", "Crops", "Water Balance"}
	got := wb.GetSheetList()
	if len(got) != len(want) {
		t.Fatalf("sheets = %v, want %v", got, want)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("sheet[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestBuildExcel_HeadersAndValues(t *testing.T) {
	in := fixtureInput(Options{Format: FormatExcel, IncludeWeather: true})
	f, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	header, err := wb.GetCellValue("Weather", "A1")
	if err != nil || header != "Location" {
		t.Errorf("A1 = %q (%v), want Location", header, err)
	}
	loc, _ := wb.GetCellValue("Weather", "A2")
	if loc != "Castroville, CA" {
		t.Errorf("A2 = %q, want the location name intact", loc)
	}
	et0, _ := wb.GetCellValue("Weather", "F2")
	if et0 != "0.21" {
		t.Errorf("F2 = %q, want 0.21", et0)
	}
	dash, _ := wb.GetCellValue("Weather", "F3")
	if dash != missing {
		t.Errorf("F3 = %q, want em-dash placeholder", dash)
	}
}

func TestBuildExcel_SkipsUnselectedSheets(t *testing.T) {
	in := fixtureInput(Options{Format: FormatExcel, IncludeSummary: true})
	f, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(f.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) != 1 || sheets[0] != "Water Balance" {
		t.Errorf("sheets = %v, want only Water Balance", sheets)
	}
}
