package domain

import (
	"fmt"
	"strings"
	"time"
)

// IssueStatus enumerates workflow states for issues.
type IssueStatus string

const (
	IssueStatusTodo       IssueStatus = "To Do"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusDone       IssueStatus = "Done"
)

// IssuePriority enumerates issue urgency.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "Low"
	IssuePriorityMedium IssuePriority = "Medium"
	IssuePriorityHigh   IssuePriority = "High"
)

// Issue is a unit of work inside a project. Ownership is derived from the project.
type Issue struct {
	ID          string
	ProjectID   string
	Title       string
	Description *string
	Status      IssueStatus
	Priority    IssuePriority
	Assignee    *string
	CreatedAt   time.Time
}

// IssueFields carries the caller supplied values for a new issue.
type IssueFields struct {
	Title       string
	Description *string
	Status      IssueStatus
	Priority    IssuePriority
	Assignee    *string
}

// WithDefaults fills status and priority when the caller left them empty.
func (f IssueFields) WithDefaults() IssueFields {
	if f.Status == "" {
		f.Status = IssueStatusTodo
	}
	if f.Priority == "" {
		f.Priority = IssuePriorityMedium
	}
	return f
}

// Optional marks a value that may or may not have been supplied.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a supplied Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// IssuePatch lists the fields an update replaces. Fields left unset keep their stored value.
// Issues never move between projects, so there is no project field.
type IssuePatch struct {
	Title       Optional[string]
	Description Optional[*string]
	Status      Optional[IssueStatus]
	Priority    Optional[IssuePriority]
	Assignee    Optional[*string]
}

// Empty reports whether the patch changes nothing.
func (p IssuePatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Status.Set && !p.Priority.Set && !p.Assignee.Set
}

// Apply returns a copy of issue with the patch applied.
func (p IssuePatch) Apply(issue Issue) Issue {
	if p.Title.Set {
		issue.Title = p.Title.Value
	}
	if p.Description.Set {
		issue.Description = p.Description.Value
	}
	if p.Status.Set {
		issue.Status = p.Status.Value
	}
	if p.Priority.Set {
		issue.Priority = p.Priority.Value
	}
	if p.Assignee.Set {
		issue.Assignee = p.Assignee.Value
	}
	return issue
}

// ParseIssueStatus converts client input into an IssueStatus.
// Matching ignores case, spaces and underscores so "Todo" and "IN_PROGRESS" are accepted.
func ParseIssueStatus(raw string) (IssueStatus, error) {
	switch normalizeLabel(raw) {
	case "todo":
		return IssueStatusTodo, nil
	case "inprogress":
		return IssueStatusInProgress, nil
	case "done":
		return IssueStatusDone, nil
	default:
		return "", fmt.Errorf("unknown issue status %q", raw)
	}
}

// ParseIssuePriority converts client input into an IssuePriority.
func ParseIssuePriority(raw string) (IssuePriority, error) {
	switch normalizeLabel(raw) {
	case "low":
		return IssuePriorityLow, nil
	case "medium":
		return IssuePriorityMedium, nil
	case "high":
		return IssuePriorityHigh, nil
	default:
		return "", fmt.Errorf("unknown issue priority %q", raw)
	}
}

// Valid reports whether s is one of the declared statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusTodo, IssueStatusInProgress, IssueStatusDone:
		return true
	}
	return false
}

// Valid reports whether p is one of the declared priorities.
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh:
		return true
	}
	return false
}

func normalizeLabel(raw string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(replacer.Replace(strings.TrimSpace(raw)))
}
