package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jfarrand/cropcast/internal/models"
)

func stageDisplay(c models.CropInstance) string {
	if c.StageName.Valid && c.StageName.String != "" {
		return c.StageName.String
	}
	switch c.Stage {
	case 3:
		return "late"
	case 2:
		return "mid-season"
	case 1:
		return "developing"
	default:
		return "early"
	}
}

// customKcDisplay renders a planting's month overrides in month order,
// e.g. "Jun=0.95; Jul=1.10".
func customKcDisplay(m map[int]float64) string {
	if len(m) == 0 {
		return missing
	}
	months := make([]int, 0, len(m))
	for month := range m {
		months = append(months, month)
	}
	sort.Ints(months)

	parts := make([]string, len(months))
	for i, month := range months {
		parts[i] = fmt.Sprintf("%s=%.2f", time.Month(month).String()[:3], m[month])
	}
	return strings.Join(parts, "; ")
}
