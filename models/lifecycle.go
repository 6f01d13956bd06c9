package models

import "fmt"

// IssueCategory classifies the subject of an issue.
type IssueCategory string

const (
	CategoryPothole         IssueCategory = "pothole"
	CategoryStreetlight     IssueCategory = "streetlight"
	CategoryWaterLeak       IssueCategory = "water_leak"
	CategoryGarbage         IssueCategory = "garbage"
	CategoryTrafficSignal   IssueCategory = "traffic_signal"
	CategorySidewalk        IssueCategory = "sidewalk"
	CategoryDrainage        IssueCategory = "drainage"
	CategoryParkMaintenance IssueCategory = "park_maintenance"
	CategoryNoisePollution  IssueCategory = "noise_pollution"
	CategoryOther           IssueCategory = "other"
)

// IssueCategories lists every category in display order.
var IssueCategories = []IssueCategory{
	CategoryPothole, CategoryStreetlight, CategoryWaterLeak, CategoryGarbage,
	CategoryTrafficSignal, CategorySidewalk, CategoryDrainage,
	CategoryParkMaintenance, CategoryNoisePollution, CategoryOther,
}

func (c IssueCategory) String() string { return string(c) }

func (c IssueCategory) IsValid() bool {
	switch c {
	case CategoryPothole, CategoryStreetlight, CategoryWaterLeak, CategoryGarbage,
		CategoryTrafficSignal, CategorySidewalk, CategoryDrainage,
		CategoryParkMaintenance, CategoryNoisePollution, CategoryOther:
		return true
	}
	return false
}

// IssuePriority is the urgency of an issue, independent of its status.
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
	PriorityUrgent IssuePriority = "urgent"
)

// IssuePriorities lists every priority from least to most urgent.
var IssuePriorities = []IssuePriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// DefaultPriority is used when a new issue does not name one.
const DefaultPriority = PriorityMedium

func (p IssuePriority) String() string { return string(p) }

func (p IssuePriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// IssueStatus is the lifecycle stage of an issue.
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusInProgress IssueStatus = "in-progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

// IssueStatuses lists every status in lifecycle order.
var IssueStatuses = []IssueStatus{StatusPending, StatusInProgress, StatusResolved, StatusClosed}

func (s IssueStatus) String() string { return string(s) }

func (s IssueStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsOpen reports whether the issue still needs work.
func (s IssueStatus) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

// TransitionPolicy decides whether an issue may move between two statuses.
type TransitionPolicy interface {
	CanTransition(from, to IssueStatus) bool
}

// PermissivePolicy allows any valid status to follow any other.
type PermissivePolicy struct{}

func (PermissivePolicy) CanTransition(from, to IssueStatus) bool {
	return to.IsValid()
}

// StrictPolicy only allows the transitions listed in its table.
// Staying in the same status is always allowed.
type StrictPolicy struct {
	Allowed map[IssueStatus][]IssueStatus
}

// DefaultTransitions is the table used by NewStrictPolicy.
var DefaultTransitions = map[IssueStatus][]IssueStatus{
	StatusPending:    {StatusInProgress, StatusClosed},
	StatusInProgress: {StatusPending, StatusResolved, StatusClosed},
	StatusResolved:   {StatusInProgress, StatusClosed},
	StatusClosed:     {StatusPending},
}

func NewStrictPolicy() StrictPolicy {
	return StrictPolicy{Allowed: DefaultTransitions}
}

func (p StrictPolicy) CanTransition(from, to IssueStatus) bool {
	if !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range p.Allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PolicyFor returns the strict policy when strict is set, the permissive one otherwise.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return NewStrictPolicy()
	}
	return PermissivePolicy{}
}

func checkTransition(policy TransitionPolicy, from, to IssueStatus) error {
	if policy == nil {
		policy = PermissivePolicy{}
	}
	if !policy.CanTransition(from, to) {
		return NewValidationError("status", fmt.Sprintf("cannot move from %q to %q", from, to))
	}
	return nil
}
