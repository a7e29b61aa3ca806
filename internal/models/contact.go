package models

import (
	"time"
)

type ContactMessage struct {
	ID        string
	Title     string
	Email     string
	Body      string
	IsRead    bool
	IsReplied bool
	CreatedAt time.Time
}

type ContactReply struct {
	ID          string
	MessageID   string
	ResponderID string
	Body        string
	CreatedAt   time.Time
}

// DashboardCounts is role-dependent; only the fields relevant to the
// caller's role are populated.
type DashboardCounts struct {
	// employer
	Jobs                 *int64 `json:"jobs,omitempty"`
	ReceivedApplications *int64 `json:"received_applications,omitempty"`
	AcceptedApplications *int64 `json:"accepted_applications,omitempty"`
	// job seeker
	Applied  *int64 `json:"applied,omitempty"`
	Accepted *int64 `json:"accepted,omitempty"`
	Rejected *int64 `json:"rejected,omitempty"`
	// admin
	PendingJobs  *int64 `json:"pending_jobs,omitempty"`
	ActiveJobs   *int64 `json:"active_jobs,omitempty"`
	Users        *int64 `json:"users,omitempty"`
	Applications *int64 `json:"applications,omitempty"`
}
