package analytics

import (
	"fmt"
	"strings"

	"github.com/machine-analytics/backend/internal/models"
)

// StatusFilter selects machines by category. FilterAll disables narrowing.
type StatusFilter string

// FilterAll matches every machine.
const FilterAll StatusFilter = "All"

// ParseStatusFilter accepts "", "All" or a category name.
func ParseStatusFilter(s string) (StatusFilter, error) {
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if cat := models.StatusCategory(s); cat.Valid() {
		return StatusFilter(cat), nil
	}
	return "", fmt.Errorf("%w: unknown status filter %q", ErrInvalidInput, s)
}

// Filter returns the machines whose category matches status and whose name
// contains query, ignoring case. Input order is preserved and the input slice
// is not modified.
func (c *Classifier) Filter(machines []models.Machine, status StatusFilter, query string) []models.Machine {
	needle := strings.ToLower(query)
	out := make([]models.Machine, 0, len(machines))
	for _, m := range machines {
		if status != FilterAll && StatusFilter(c.Classify(m.StatusName)) != status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(m.Name), needle) {
			continue
		}
		out = append(out, m)
	}
	return out
}
