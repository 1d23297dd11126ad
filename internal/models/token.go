package models

import "time"

// Token is a single-use feedback credential.
type Token struct {
	Value     string    `db:"token" json:"token"`
	Used      bool      `db:"is_used" json:"used"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TokenStats aggregates token usage.
type TokenStats struct {
	Total  int `db:"total" json:"total"`
	Used   int `db:"used" json:"used"`
	Unused int `db:"-" json:"unused"`
}
