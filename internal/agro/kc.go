package agro

import (
	"strings"
	"time"

	"github.com/jfarrand/cropcast/internal/models"
)

// Kc fallbacks, applied in the resolution order documented on ResolveKc.
const (
	KcMissingMonth = 1.0  // month-indexed profile with no entry for the month
	KcUnknownStage = 0.75 // stage-indexed profile with an unrecognized stage name
	KcMidSeason    = 1.15 // coarse default, numeric stage 2
	KcDevelopment  = 0.70 // coarse default, numeric stage 1
	KcDefault      = 0.50 // coarse default, everything else
)

// Canonical growth-stage names for stage-indexed profiles.
const (
	StageInitial     = "initial"
	StageDevelopment = "development"
	StageMid         = "mid-season"
	StageLate        = "late-season"
)

// KcProfile is the reference crop-coefficient table for one crop type.
// Exactly one of ByMonth or ByStage is populated.
type KcProfile struct {
	CropID  string
	Name    string
	ByMonth map[int]float64    // calendar month 1-12
	ByStage map[string]float64 // canonical stage name
}

// ResolveKc returns the crop coefficient for one day of one planting.
// Resolution order, first match wins:
//  1. the planting's per-month user override (an explicit 0 counts),
//  2. the profile's month table, missing month -> KcMissingMonth,
//  3. the profile's stage table keyed by the planting's stage name,
//     unknown name -> KcUnknownStage,
//  4. a coarse default from the numeric stage.
func ResolveKc(date time.Time, inst models.CropInstance, profile *KcProfile) float64 {
	if kc, ok := inst.CustomKc[int(date.Month())]; ok {
		return kc
	}
	if profile != nil && len(profile.ByMonth) > 0 {
		if kc, ok := profile.ByMonth[int(date.Month())]; ok {
			return kc
		}
		return KcMissingMonth
	}
	if profile != nil && len(profile.ByStage) > 0 {
		if kc, ok := profile.ByStage[normalizeStage(inst.StageName.String)]; ok && inst.StageName.Valid {
			return kc
		}
		return KcUnknownStage
	}
	switch inst.Stage {
	case 2:
		return KcMidSeason
	case 1:
		return KcDevelopment
	default:
		return KcDefault
	}
}

func normalizeStage(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	switch s {
	case "init", "initial", "establishment":
		return StageInitial
	case "dev", "development", "developing":
		return StageDevelopment
	case "mid", "midseason", "mid-season", "peak":
		return StageMid
	case "late", "lateseason", "late-season", "maturity":
		return StageLate
	}
	return s
}

// ProfileRegistry holds the known crop-coefficient profiles. It is built once
// at startup and passed to whatever needs it; there is no package-level
// registry to leak state between tests.
type ProfileRegistry struct {
	byID map[string]*KcProfile
}

func NewProfileRegistry() *ProfileRegistry {
	r := &ProfileRegistry{byID: make(map[string]*KcProfile)}
	for _, p := range builtinProfiles {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a profile. Later registrations win, so callers
// can shadow a builtin with field-trial data.
func (r *ProfileRegistry) Register(p *KcProfile) {
	r.byID[p.CropID] = p
}

// Lookup returns nil when the crop has no profile; ResolveKc treats nil as
// "fall back to coarse stage defaults".
func (r *ProfileRegistry) Lookup(cropID string) *KcProfile {
	return r.byID[cropID]
}

func (r *ProfileRegistry) CropIDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// Builtin profiles for the common California crops. Month tables are used for
// permanent plantings whose water use tracks the calendar; annual vegetables
// get stage tables keyed to the planting's declared growth stage.
var builtinProfiles = []*KcProfile{
	{
		CropID: "almond",
		Name:   "Almond",
		ByMonth: map[int]float64{
			2: 0.40, 3: 0.60, 4: 0.75, 5: 0.90, 6: 1.05,
			7: 1.10, 8: 1.10, 9: 1.00, 10: 0.80, 11: 0.60,
		},
	},
	{
		CropID: "grape_wine",
		Name:   "Wine Grape",
		ByMonth: map[int]float64{
			4: 0.30, 5: 0.45, 6: 0.60, 7: 0.70, 8: 0.70, 9: 0.60, 10: 0.45,
		},
	},
	{
		CropID: "alfalfa",
		Name:   "Alfalfa",
		ByMonth: map[int]float64{
			1: 0.60, 2: 0.70, 3: 0.85, 4: 0.95, 5: 1.00, 6: 1.00,
			7: 1.00, 8: 1.00, 9: 0.95, 10: 0.85, 11: 0.70, 12: 0.60,
		},
	},
	{
		CropID: "lettuce",
		Name:   "Lettuce",
		ByStage: map[string]float64{
			StageInitial: 0.70, StageDevelopment: 0.85, StageMid: 1.00, StageLate: 0.95,
		},
	},
	{
		CropID: "strawberry",
		Name:   "Strawberry",
		ByStage: map[string]float64{
			StageInitial: 0.40, StageDevelopment: 0.70, StageMid: 0.85, StageLate: 0.75,
		},
	},
	{
		CropID: "tomato_processing",
		Name:   "Processing Tomato",
		ByStage: map[string]float64{
			StageInitial: 0.60, StageDevelopment: 0.85, StageMid: 1.15, StageLate: 0.80,
		},
	},
	{
		CropID: "broccoli",
		Name:   "Broccoli",
		ByStage: map[string]float64{
			StageInitial: 0.70, StageDevelopment: 0.95, StageMid: 1.05, StageLate: 0.95,
		},
	},
}
