package model

import "time"

// Student and Teacher are the source records behind an AuthPrincipal. Only the
// fields authentication needs are modelled.
type Student struct {
	ID           int64
	Name         string
	LastName     string
	Email        string
	PasswordHash string
	PhoneNumber  string
	Major        string
	Active       bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

type Teacher struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	PhoneNumber  string
	IsAdmin      bool
	RegisteredAt time.Time
}
