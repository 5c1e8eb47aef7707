package analytics

import "github.com/machine-analytics/backend/internal/models"

// distributionOrder is fixed so chart slices keep their position.
var distributionOrder = []models.StatusCategory{models.StatusNormal, models.StatusAlert, models.StatusCritical}

// Aggregate counts machines per category in a single pass.
func (c *Classifier) Aggregate(machines []models.Machine) models.KpiSnapshot {
	var k models.KpiSnapshot
	for _, m := range machines {
		switch c.Classify(m.StatusName) {
		case models.StatusNormal:
			k.Normal++
		case models.StatusAlert:
			k.Alert++
		case models.StatusCritical:
			k.Critical++
		default:
			k.Unknown++
		}
	}
	k.Total = len(machines)
	return k
}

// Distribution returns Normal, Alert and Critical counts in that order,
// including zero counts.
func (c *Classifier) Distribution(machines []models.Machine) []models.StatusCount {
	k := c.Aggregate(machines)
	counts := map[models.StatusCategory]int{
		models.StatusNormal:   k.Normal,
		models.StatusAlert:    k.Alert,
		models.StatusCritical: k.Critical,
	}
	out := make([]models.StatusCount, 0, len(distributionOrder))
	for _, cat := range distributionOrder {
		out = append(out, models.StatusCount{
			Category: cat,
			Count:    counts[cat],
			Color:    c.ColorFor(cat),
		})
	}
	return out
}
