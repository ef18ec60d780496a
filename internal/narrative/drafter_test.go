package narrative

import (
	"strings"
	"testing"

	"github.com/jfarrand/cropcast/internal/balance"
)

func TestBuildPrompt(t *testing.T) {
	summaries := []balance.Summary{
		{
			LocationName: "Salinas",
			CropName:     "Strawberry",
			ETcForecast:  2.4,
			ETcActual:    1.1,
			ActualDays:   5,
			Need:         balance.NeedMed,
		},
		{
			LocationName: "Yuma",
			CropName:     "Lettuce",
			ETcForecast:  3.8,
			Need:         balance.NeedHigh,
			Station:      balance.StationOutOfRegion,
		},
	}

	prompt := buildPrompt(summaries)

	for _, want := range []string{
		"Salinas, Strawberry",
		"2.40 in (Med need)",
		"measured ET so far 1.10 in",
		"Yuma, Lettuce",
		"no station coverage",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	// Out-of-region rows never claim a measured value.
	yumaLine := ""
	for _, line := range strings.Split(prompt, "\n") {
		if strings.Contains(line, "Yuma") {
			yumaLine = line
		}
	}
	if strings.Contains(yumaLine, "measured") {
		t.Errorf("yuma line = %q", yumaLine)
	}
}
