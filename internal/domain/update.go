package domain

import "time"

// UpdateType classifies what a camera update is about.
type UpdateType string

const (
	TypeFirmware UpdateType = "firmware"
	TypeCamera   UpdateType = "camera"
	TypeLens     UpdateType = "lens"
)

// Valid reports whether t is one of the known update types.
func (t UpdateType) Valid() bool {
	switch t {
	case TypeFirmware, TypeCamera, TypeLens:
		return true
	}
	return false
}

// Priority signals how urgent an update is for owners.
type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities for sorting; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}

// CameraUpdate is the unit of work flowing through the aggregation pipeline.
type CameraUpdate struct {
	ID           string
	Brand        string
	Type         UpdateType
	Title        string
	Date         time.Time
	Version      string
	Description  string
	Features     []string
	DownloadLink string
	ImageURL     string
	SourceURL    string
	SourceName   string
	Priority     Priority
	Category     string
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
