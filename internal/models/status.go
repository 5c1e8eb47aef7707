package models

// StatusCategory is the closed set of health categories a status label can map to.
type StatusCategory string

const (
	StatusNormal   StatusCategory = "Normal"
	StatusAlert    StatusCategory = "Alert"
	StatusCritical StatusCategory = "Critical"
	StatusUnknown  StatusCategory = "Unknown"
)

// StatusCategories lists every category in display order.
var StatusCategories = []StatusCategory{StatusNormal, StatusAlert, StatusCritical, StatusUnknown}

// Valid reports whether c is one of the known categories.
func (c StatusCategory) Valid() bool {
	switch c {
	case StatusNormal, StatusAlert, StatusCritical, StatusUnknown:
		return true
	}
	return false
}

// KpiSnapshot holds machine counts per health category.
// Total always equals Normal+Alert+Critical+Unknown.
type KpiSnapshot struct {
	Total    int `json:"total" msgpack:"total"`
	Normal   int `json:"normal" msgpack:"normal"`
	Alert    int `json:"alert" msgpack:"alert"`
	Critical int `json:"critical" msgpack:"critical"`
	Unknown  int `json:"unknown" msgpack:"unknown"`
}

// StatusCount is one slice of the status distribution chart.
type StatusCount struct {
	Category StatusCategory `json:"name" msgpack:"name"`
	Count    int            `json:"value" msgpack:"value"`
	Color    string         `json:"color" msgpack:"color"`
}

// Dashboard is the derived state for the machine overview page.
type Dashboard struct {
	Machines     []Machine     `json:"machines" msgpack:"machines"`
	KPI          KpiSnapshot   `json:"kpi" msgpack:"kpi"`
	Distribution []StatusCount `json:"distribution" msgpack:"distribution"`
}
