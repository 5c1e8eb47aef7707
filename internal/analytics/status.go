// Package analytics derives dashboard and sensor-detail state from machine
// telemetry snapshots. Every function here is pure and safe for concurrent use.
package analytics

import (
	"fmt"

	"github.com/machine-analytics/backend/internal/models"
)

// Default display colors.
const (
	ColorNormal   = "#22c55e"
	ColorAlert    = "#f59e0b"
	ColorCritical = "#ef4444"
	ColorUnknown  = "#94a3b8"
)

// StatusRule maps one exact status label to a category and color.
type StatusRule struct {
	Label    string                `json:"label" yaml:"label"`
	Category models.StatusCategory `json:"category" yaml:"category"`
	Color    string                `json:"color" yaml:"color"`
}

// Taxonomy is the set of recognized status labels.
type Taxonomy struct {
	Statuses     []StatusRule `json:"statuses" yaml:"statuses"`
	UnknownColor string       `json:"unknownColor" yaml:"unknown_color"`
}

// DefaultTaxonomy recognizes the labels "Normal", "Alert" and "Critical".
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Statuses: []StatusRule{
			{Label: "Normal", Category: models.StatusNormal, Color: ColorNormal},
			{Label: "Alert", Category: models.StatusAlert, Color: ColorAlert},
			{Label: "Critical", Category: models.StatusCritical, Color: ColorCritical},
		},
		UnknownColor: ColorUnknown,
	}
}

// Validate checks that every rule has a unique label and a known category.
func (t Taxonomy) Validate() error {
	seen := make(map[string]struct{}, len(t.Statuses))
	for i, r := range t.Statuses {
		if r.Label == "" {
			return fmt.Errorf("%w: status rule %d has an empty label", ErrInvalidInput, i)
		}
		if !r.Category.Valid() {
			return fmt.Errorf("%w: status rule %q has unknown category %q", ErrInvalidInput, r.Label, r.Category)
		}
		if _, dup := seen[r.Label]; dup {
			return fmt.Errorf("%w: duplicate status label %q", ErrInvalidInput, r.Label)
		}
		seen[r.Label] = struct{}{}
	}
	return nil
}

// Classifier maps status labels to categories and categories to colors.
type Classifier struct {
	categories map[string]models.StatusCategory
	colors     map[models.StatusCategory]string
	taxonomy   Taxonomy
}

// NewClassifier builds a classifier from t. Categories without an explicit
// color fall back to the default palette.
func NewClassifier(t Taxonomy) *Classifier {
	c := &Classifier{
		categories: make(map[string]models.StatusCategory, len(t.Statuses)),
		colors: map[models.StatusCategory]string{
			models.StatusNormal:   ColorNormal,
			models.StatusAlert:    ColorAlert,
			models.StatusCritical: ColorCritical,
			models.StatusUnknown:  ColorUnknown,
		},
	}
	// The first color given for a category wins.
	colored := make(map[models.StatusCategory]bool)
	for _, r := range t.Statuses {
		c.categories[r.Label] = r.Category
		if r.Color != "" && !colored[r.Category] {
			c.colors[r.Category] = r.Color
			colored[r.Category] = true
		}
	}
	if t.UnknownColor != "" {
		c.colors[models.StatusUnknown] = t.UnknownColor
	}

	c.taxonomy = Taxonomy{
		Statuses:     append([]StatusRule(nil), t.Statuses...),
		UnknownColor: c.colors[models.StatusUnknown],
	}
	return c
}

// Classify returns the category for label. Matching is exact and
// case-sensitive; unrecognized or empty labels are Unknown.
func (c *Classifier) Classify(label string) models.StatusCategory {
	if cat, ok := c.categories[label]; ok {
		return cat
	}
	return models.StatusUnknown
}

// ColorFor returns the display color for category.
func (c *Classifier) ColorFor(category models.StatusCategory) string {
	if color, ok := c.colors[category]; ok {
		return color
	}
	return c.colors[models.StatusUnknown]
}

// Taxonomy returns a copy of the taxonomy the classifier was built from.
func (c *Classifier) Taxonomy() Taxonomy {
	return Taxonomy{
		Statuses:     append([]StatusRule(nil), c.taxonomy.Statuses...),
		UnknownColor: c.taxonomy.UnknownColor,
	}
}
