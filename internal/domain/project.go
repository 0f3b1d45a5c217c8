package domain

import "time"

// Project is a named workspace owned by exactly one user.
type Project struct {
	ID          string
	Title       string
	Description *string
	OwnerID     string
	CreatedAt   time.Time
}

// OwnedBy reports whether the project belongs to the given user.
func (p *Project) OwnedBy(userID string) bool {
	return p != nil && userID != "" && p.OwnerID == userID
}
