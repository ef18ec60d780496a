package report

import (
	"strings"
	"testing"

	"github.com/jfarrand/cropcast/internal/balance"
)

func TestBuildHTML_SelfContainedDocument(t *testing.T) {
	opts := Options{
		Format:         FormatHTML,
		IncludeSummary: true,
		Title:          "Valley Report",
		Intro:          "<div>Dry spell ahead.</div>",
		Closing:        "Contact the district office with questions.",
	}
	f, err := Build(fixtureInput(opts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := string(f.Data)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"Valley Report",
		"Dry spell ahead.",
		"Contact the district office",
		"Strawberry",
		"Castroville, CA",
		">Low<",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(out, "<script") {
		t.Error("document should carry no scripts")
	}
	if f.ContentType != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q", f.ContentType)
	}
}

func TestBuildHTML_GroupsByCropAcrossLocations(t *testing.T) {
	in := fixtureInput(Options{Format: FormatHTML, IncludeSummary: true})
	in.Summaries = append(in.Summaries, balance.Summary{
		LocationID:   2,
		LocationName: "Salinas",
		CropID:       "strawberry",
		CropName:     "Strawberry",
		ET0Forecast:  1.1,
		ETcForecast:  0.95,
		ForecastDays: 7,
		KcValues:     []float64{0.85},
		Need:         balance.NeedLow,
	})

	f, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := string(f.Data)

	// One crop section holding both locations, not one section per location.
	if got := strings.Count(out, "<h2>Strawberry</h2>"); got != 1 {
		t.Errorf("Strawberry sections = %d, want 1", got)
	}
	if !strings.Contains(out, "Salinas") || !strings.Contains(out, "Castroville, CA") {
		t.Error("both locations should appear under the crop")
	}
}

func TestBuildHTML_KcBreakdownShown(t *testing.T) {
	in := fixtureInput(Options{Format: FormatHTML, IncludeSummary: true})
	in.Summaries[0].KcValues = []float64{1.0, 1.3}
	in.Summaries[0].ETcByKc = []balance.KcBucket{
		{Kc: 1.0, ETc: 1.4}, {Kc: 1.3, ETc: 1.82},
	}

	f, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(string(f.Data), "(1.40, 1.82)") {
		t.Error("per-Kc forecast subtotals missing from the crop table")
	}
}

func TestBuildHTML_StationNoteShown(t *testing.T) {
	in := fixtureInput(Options{Format: FormatHTML, IncludeSummary: true})
	in.Summaries[0].Station = balance.StationOutOfRegion
	in.Summaries[0].ActualDays = 0

	f, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !strings.Contains(string(f.Data), "not available in this region") {
		t.Error("out-of-region status missing from the table")
	}
}

func TestBuildHTML_ChartsScaleToTallestBar(t *testing.T) {
	in := fixtureInput(Options{Format: FormatHTML, IncludeSummary: true})
	in.Summaries = append(in.Summaries, balance.Summary{
		LocationID:   2,
		LocationName: "Salinas",
		CropID:       "strawberry",
		CropName:     "Strawberry",
		ETcForecast:  0.9, // half the daily rate of the fixture location
		ForecastDays: 10,
		Need:         balance.NeedLow,
	})
	in.Summaries[0].ETcForecast = 1.8
	in.Summaries[0].ForecastDays = 10

	f, err := Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := string(f.Data)
	if !strings.Contains(out, "height:120px") {
		t.Error("tallest bar should fill the chart height")
	}
	if !strings.Contains(out, "height:60px") {
		t.Error("half-rate location should render at half height")
	}
}

func TestBuildHTML_IntroSanitized(t *testing.T) {
	opts := Options{Format: FormatHTML, IncludeSummary: true}
	opts.Intro = `<script>alert("x")</script><div>Safe text</div>`
	f, err := Build(fixtureInput(opts))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	out := string(f.Data)
	if strings.Contains(out, "alert(") {
		t.Error("script content leaked into the document")
	}
	if !strings.Contains(out, "Safe text") {
		t.Error("sanitized intro text missing")
	}
}
