package models

import (
	"encoding/json"
	"time"
)

const (
	RoleAdmin   = "ROLE_ADMIN"
	RoleUser    = "ROLE_USER"
	RoleDoctor  = "ROLE_DOCTOR"
	RoleShelter = "ROLE_SHELTER"
)

type User struct {
	ID                      int64      `json:"id" db:"id"`
	Username                string     `json:"username" db:"username"`
	Email                   string     `json:"email" db:"email"`
	PassHash                []byte     `json:"-" db:"password_hash"`
	Roles                   []string   `json:"roles" db:"-"`
	EmailVerified           bool       `json:"emailVerified" db:"email_verified"`
	VerificationToken       *string    `json:"-" db:"verification_token"`
	VerificationTokenExpiry *time.Time `json:"-" db:"verification_token_expiry"`
	LastLogin               *time.Time `json:"lastLogin,omitempty" db:"last_login"`
}

// HasRole reports whether the user carries the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}

	return false
}

type Role struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// AdoptionState tracks an animal through the adoption workflow.
type AdoptionState string

const (
	AdoptionNone     AdoptionState = "none"
	AdoptionPending  AdoptionState = "pending"
	AdoptionDenied   AdoptionState = "denied"
	AdoptionAccepted AdoptionState = "accepted"
)

type Animal struct {
	ID            int64         `json:"id" db:"id"`
	Age           int           `json:"age" db:"age"`
	Gender        Gender        `json:"gender" db:"gender"`
	Type          string        `json:"type" db:"type"`
	Name          string        `json:"name" db:"name"`
	AdoptionState AdoptionState `json:"adoptionState" db:"adoption_state"`
	OwnerID       *int64        `json:"userId" db:"owner_id"`
}

// Req mirrors the legacy 0/1 request flag: 1 while an adoption request is open.
func (a *Animal) Req() int {
	if a.AdoptionState == AdoptionPending {
		return 1
	}

	return 0
}

func (a Animal) MarshalJSON() ([]byte, error) {
	type animal Animal

	return json.Marshal(struct {
		animal
		Req int `json:"req"`
	}{
		animal: animal(a),
		Req:    a.Req(),
	})
}

// IntakeRequest is an animal proposed for intake by a shelter. It is not
// part of the adoption flow.
type IntakeRequest struct {
	ID     int64  `json:"id" db:"id"`
	Age    int    `json:"age" db:"age"`
	Gender Gender `json:"gender" db:"gender"`
	Type   string `json:"type" db:"type"`
	Name   string `json:"name" db:"name"`
}

// Message is a queued email. The JSON shape is shared by the publisher and
// the mail_sender consumer.
type Message struct {
	Email   string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Purpose string `json:"purpose"`
}
