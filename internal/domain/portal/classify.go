package portal

import "strings"

// StatusCategory is the display category of a record status.
type StatusCategory string

// Status categories
const (
	StatusSuccess StatusCategory = "success"
	StatusWarning StatusCategory = "warning"
	StatusDanger  StatusCategory = "danger"
	StatusInfo    StatusCategory = "info"
)

var statusCategories = map[string]StatusCategory{
	"approved":   StatusSuccess,
	"confirmed":  StatusSuccess,
	"delivered":  StatusSuccess,
	"paid":       StatusSuccess,
	"pending":    StatusWarning,
	"processing": StatusWarning,
	"in transit": StatusWarning,
	"rejected":   StatusDanger,
	"cancelled":  StatusDanger,
	"overdue":    StatusDanger,
	"delayed":    StatusDanger,
}

// ClassifyStatus maps a status label to its display category, ignoring case.
// Unrecognised labels are informational.
func ClassifyStatus(status string) StatusCategory {
	if c, ok := statusCategories[strings.ToLower(strings.TrimSpace(status))]; ok {
		return c
	}
	return StatusInfo
}

// BadgeClass returns the badge style for the category.
func (c StatusCategory) BadgeClass() string {
	return "badge-" + string(c)
}

// AgingBand is the severity of an overdue payment.
type AgingBand string

// Aging bands
const (
	AgingNone     AgingBand = "none"
	AgingMild     AgingBand = "mild"
	AgingModerate AgingBand = "moderate"
	AgingSevere   AgingBand = "severe"
)

// ClassifyAging maps days overdue to a severity band. Negative input is
// treated as not overdue.
func ClassifyAging(daysOverdue int) AgingBand {
	switch {
	case daysOverdue <= 0:
		return AgingNone
	case daysOverdue <= 2:
		return AgingMild
	case daysOverdue <= 10:
		return AgingModerate
	default:
		return AgingSevere
	}
}

var agingClasses = map[AgingBand]string{
	AgingMild:     "status-yellow",
	AgingModerate: "status-orange",
	AgingSevere:   "status-red",
}

// CSSClass returns the aging style, empty for AgingNone.
func (b AgingBand) CSSClass() string {
	return agingClasses[b]
}
