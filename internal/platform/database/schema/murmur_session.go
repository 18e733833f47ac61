// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// MurmurSessionTable represents the 'murmur.session' table
type MurmurSessionTable struct {
	Table     string
	TokenHash string
	Email     string
	LastUsed  string
	CreatedAt string
}

// MurmurSession is the schema definition for murmur.session
var MurmurSession = MurmurSessionTable{
	Table:     "murmur.session",
	TokenHash: "tokenhash",
	Email:     "email",
	LastUsed:  "lastused",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t MurmurSessionTable) Columns() []string {
	return []string{t.TokenHash, t.Email, t.LastUsed, t.CreatedAt}
}
