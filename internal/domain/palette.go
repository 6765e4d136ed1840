package domain

// Gradient is a start/end pair of hex colors for a card background.
type Gradient struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

var defaultGradient = Gradient{Start: "#CED4DA", End: "#DEE2E6"}

const defaultBadgeColor = "#CED4DA"

// PriorityGradient maps a priority to its card gradient. Unknown values get a neutral grey.
func PriorityGradient(p Priority) Gradient {
	switch p {
	case PriorityHigh:
		return Gradient{Start: "#FF6B6B", End: "#FF8787"}
	case PriorityMedium:
		return Gradient{Start: "#4DABF7", End: "#74C0FC"}
	case PriorityLow:
		return Gradient{Start: "#51CF66", End: "#69DB7C"}
	default:
		return defaultGradient
	}
}

// StatusBadgeColor maps a status to its badge color.
func StatusBadgeColor(s Status) string {
	switch s {
	case StatusCreated:
		return "#868E96"
	case StatusStarted:
		return "#4C6EF5"
	case StatusInProgress:
		return "#FAB005"
	case StatusCompleted:
		return "#40C057"
	default:
		return defaultBadgeColor
	}
}
