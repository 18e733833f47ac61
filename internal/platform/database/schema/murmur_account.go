// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema holds the column names of the murmur PostgreSQL tables.
//
// Repositories build their statements from these definitions so a renamed
// column is a one-line change.
package schema

// MurmurAccountTable represents the 'murmur.account' table
type MurmurAccountTable struct {
	Table       string
	ID          string
	Email       string
	DisplayName string
	Color       string
	Initials    string
	CreatedAt   string
}

// MurmurAccount is the schema definition for murmur.account
var MurmurAccount = MurmurAccountTable{
	Table:       "murmur.account",
	ID:          "id",
	Email:       "email",
	DisplayName: "displayname",
	Color:       "color",
	Initials:    "initials",
	CreatedAt:   "createdat",
}

// Columns returns all standard column names
func (t MurmurAccountTable) Columns() []string {
	return []string{t.ID, t.Email, t.DisplayName, t.Color, t.Initials, t.CreatedAt}
}
