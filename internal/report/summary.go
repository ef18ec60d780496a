package report

import (
	"fmt"

	"github.com/jfarrand/cropcast/internal/balance"
)

// SummaryRule is one (predicate, template) pair for the weekly summary
// paragraph. Rules are evaluated in order and the first match wins, which
// keeps the decision logic testable apart from the prose.
type SummaryRule struct {
	Name   string
	When   func(balance.Summary) bool
	Render func(balance.Summary) string
}

type SummaryRules []SummaryRule

// Render returns the paragraph for the first matching rule, or an empty
// string when nothing matches.
func (rules SummaryRules) Render(s balance.Summary) string {
	for _, r := range rules {
		if r.When(s) {
			return r.Render(s)
		}
	}
	return ""
}

// Match returns the name of the first matching rule, for tests and debugging.
func (rules SummaryRules) Match(s balance.Summary) string {
	for _, r := range rules {
		if r.When(s) {
			return r.Name
		}
	}
	return ""
}

func DefaultSummaryRules() SummaryRules {
	return SummaryRules{
		{
			Name: "no-forecast-data",
			When: func(s balance.Summary) bool { return s.ForecastDays == 0 },
			Render: func(s balance.Summary) string {
				return fmt.Sprintf("No forecast data is available for %s at %s this period.",
					s.CropName, s.LocationName)
			},
		},
		{
			Name: "high-need",
			When: func(s balance.Summary) bool { return s.Need == balance.NeedHigh },
			Render: func(s balance.Summary) string {
				return fmt.Sprintf("%s at %s is forecast to use %s inches of water over the coming days "+
					"(reference ET %.2f in). Water need is High; plan irrigation ahead of the demand peak.%s",
					s.CropName, s.LocationName, s.ETcForecastDisplay(), s.ET0Forecast, kcChangeNote(s))
			},
		},
		{
			Name: "med-need-rising",
			When: func(s balance.Summary) bool {
				return s.Need == balance.NeedMed && s.ActualDays > 0 && s.ETcForecast > s.ETcActual
			},
			Render: func(s balance.Summary) string {
				return fmt.Sprintf("%s at %s used %.2f inches over the measured days and is forecast to use %s inches, "+
					"a moderate and rising demand. Keep soil moisture topped up.%s",
					s.CropName, s.LocationName, s.ETcActual, s.ETcForecastDisplay(), kcChangeNote(s))
			},
		},
		{
			Name: "med-need",
			When: func(s balance.Summary) bool { return s.Need == balance.NeedMed },
			Render: func(s balance.Summary) string {
				return fmt.Sprintf("%s at %s has a moderate forecast water demand of %s inches. "+
					"Normal irrigation scheduling should cover it.%s",
					s.CropName, s.LocationName, s.ETcForecastDisplay(), kcChangeNote(s))
			},
		},
		{
			Name: "low-need-no-station",
			When: func(s balance.Summary) bool { return s.Station == balance.StationOutOfRegion },
			Render: func(s balance.Summary) string {
				return fmt.Sprintf("%s at %s shows a low forecast water demand of %s inches. "+
					"Measured station ET is not available in this region, so the actual columns are blank.%s",
					s.CropName, s.LocationName, s.ETcForecastDisplay(), kcChangeNote(s))
			},
		},
		{
			Name: "low-need",
			When: func(s balance.Summary) bool { return true },
			Render: func(s balance.Summary) string {
				return fmt.Sprintf("%s at %s shows a low forecast water demand of %s inches. "+
					"No extra irrigation should be needed this period.%s",
					s.CropName, s.LocationName, s.ETcForecastDisplay(), kcChangeNote(s))
			},
		},
	}
}

func kcChangeNote(s balance.Summary) string {
	if len(s.KcValues) <= 1 {
		return ""
	}
	return fmt.Sprintf(" The crop coefficient changes within the window %s, so forecast use is broken out per coefficient.",
		s.KcDisplay())
}
