package balance

// Need is the coarse water-need category derived from summed forecast crop
// water use over the reporting window.
type Need int

const (
	NeedLow Need = iota
	NeedMed
	NeedHigh
)

func (n Need) String() string {
	switch n {
	case NeedHigh:
		return "High"
	case NeedMed:
		return "Med"
	default:
		return "Low"
	}
}

// NeedStyle maps a category to its presentation attributes. Renderers read
// from this table instead of switching on strings.
type NeedStyle struct {
	Label string
	Color string // badge background
	Text  string // badge text color
}

var needStyles = map[Need]NeedStyle{
	NeedLow:  {Label: "Low", Color: "#e8f5e9", Text: "#2e7d32"},
	NeedMed:  {Label: "Med", Color: "#fff8e1", Text: "#f57f17"},
	NeedHigh: {Label: "High", Color: "#ffebee", Text: "#c62828"},
}

func (n Need) Style() NeedStyle {
	return needStyles[n]
}

// Thresholds are the forecast-ETc cutoffs, in inches over the window.
// Empirical constants with no published derivation; keep them overridable
// rather than recalibrating.
type Thresholds struct {
	Med  float64
	High float64
}

var DefaultThresholds = Thresholds{Med: 2.1, High: 3.5}

// Classify buckets a forecast ETc sum. The boundaries belong to the lower
// category: exactly High is still Med, exactly Med is Med.
func Classify(forecastETc float64, t Thresholds) Need {
	switch {
	case forecastETc > t.High:
		return NeedHigh
	case forecastETc >= t.Med:
		return NeedMed
	default:
		return NeedLow
	}
}
