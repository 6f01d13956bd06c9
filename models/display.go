package models

// Display is the presentation label and color of an enumerated value.
type Display struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// UnknownDisplay is returned for values outside the enumerations.
var UnknownDisplay = Display{Label: "Unknown", Color: "gray"}

var categoryLabels = map[IssueCategory]string{
	CategoryPothole:         "Pothole",
	CategoryStreetlight:     "Street Light",
	CategoryWaterLeak:       "Water Leak",
	CategoryGarbage:         "Garbage/Waste",
	CategoryTrafficSignal:   "Traffic Signal",
	CategorySidewalk:        "Sidewalk",
	CategoryDrainage:        "Drainage",
	CategoryParkMaintenance: "Park Maintenance",
	CategoryNoisePollution:  "Noise Pollution",
	CategoryOther:           "Other",
}

var priorityDisplays = map[IssuePriority]Display{
	PriorityLow:    {Label: "Low", Color: "green"},
	PriorityMedium: {Label: "Medium", Color: "yellow"},
	PriorityHigh:   {Label: "High", Color: "orange"},
	PriorityUrgent: {Label: "Urgent", Color: "red"},
}

var statusDisplays = map[IssueStatus]Display{
	StatusPending:    {Label: "Pending", Color: "gray"},
	StatusInProgress: {Label: "In Progress", Color: "blue"},
	StatusResolved:   {Label: "Resolved", Color: "green"},
	StatusClosed:     {Label: "Closed", Color: "red"},
}

func CategoryLabel(c IssueCategory) string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return UnknownDisplay.Label
}

func PriorityDisplay(p IssuePriority) Display {
	if d, ok := priorityDisplays[p]; ok {
		return d
	}
	return UnknownDisplay
}

func StatusDisplay(s IssueStatus) Display {
	if d, ok := statusDisplays[s]; ok {
		return d
	}
	return UnknownDisplay
}
