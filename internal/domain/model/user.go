package model

import "time"

// User is the minimal view of a platform account this service needs.
// Onboarding only ever asks how many exist.
type User struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}
