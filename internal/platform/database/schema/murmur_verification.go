// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// MurmurVerificationTable represents the 'murmur.verification' table
type MurmurVerificationTable struct {
	Table           string
	Email           string
	PendingUsername string
	CodeHash        string
	CreatedAt       string
}

// MurmurVerification is the schema definition for murmur.verification
var MurmurVerification = MurmurVerificationTable{
	Table:           "murmur.verification",
	Email:           "email",
	PendingUsername: "pendingusername",
	CodeHash:        "codehash",
	CreatedAt:       "createdat",
}

// Columns returns all standard column names
func (t MurmurVerificationTable) Columns() []string {
	return []string{t.Email, t.PendingUsername, t.CodeHash, t.CreatedAt}
}
