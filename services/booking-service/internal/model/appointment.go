package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
)

// DefaultService is applied when a booking does not name a service.
const DefaultService = "Haircut"

// ParseStatusFilter maps the ?status= query value to a filter. Empty and
// "all" mean no filter.
func ParseStatusFilter(raw string) (Status, bool) {
	switch strings.TrimSpace(raw) {
	case "", "all":
		return "", true
	case string(StatusPending):
		return StatusPending, true
	case string(StatusConfirmed):
		return StatusConfirmed, true
	default:
		return "", false
	}
}

type Appointment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Service     string    `json:"service"`
	Status      Status    `json:"status"`
	IsConfirmed bool      `json:"is_confirmed"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewAppointment builds a Pending record stamped at now. Optional fields are
// trimmed and defaulted; the caller validates name and phone.
func NewAppointment(id, name, phone, address, email, service string, now time.Time) Appointment {
	service = strings.TrimSpace(service)
	if service == "" {
		service = DefaultService
	}
	now = now.UTC()
	return Appointment{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Address:     strings.TrimSpace(address),
		Phone:       strings.TrimSpace(phone),
		Email:       strings.TrimSpace(email),
		Service:     service,
		Status:      StatusPending,
		IsConfirmed: false,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Confirm moves the record to Confirmed. Status and flag change together.
func (a *Appointment) Confirm(now time.Time) {
	a.Status = StatusConfirmed
	a.IsConfirmed = true
	a.LastUpdated = now.UTC()
}
