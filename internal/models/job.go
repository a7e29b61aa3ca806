package models

import (
	"time"
)

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentRemote     EmploymentType = "remote"
	EmploymentInternship EmploymentType = "internship"
)

func ValidEmploymentType(t EmploymentType) bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentRemote, EmploymentInternship:
		return true
	}
	return false
}

type Job struct {
	ID             string
	EmployerID     string
	Title          string
	Description    string
	Location       string
	EmploymentType EmploymentType
	SalaryMin      *int64
	SalaryMax      *int64
	IsApproved     bool
	IsClosed       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
)

type Application struct {
	ID          string
	JobID       string
	SeekerID    string
	CoverLetter string
	Status      ApplicationStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
