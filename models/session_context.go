package models

import "time"

// SessionTurn is one entry in a guest's conversational history.
type SessionTurn struct {
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Department string    `json:"department"`
}

// SessionContext is the short multi-turn conversational context kept per
// guest. It lives in the session store (redis with a TTL, or process memory),
// not in the relational database. History is append-only and ordered;
// LastDepartment/LastIntent always reflect the most recent turn.
type SessionContext struct {
	GuestID        string        `json:"guest_id"`
	History        []SessionTurn `json:"history"`
	LastDepartment string        `json:"last_department"`
	LastIntent     string        `json:"last_intent"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
