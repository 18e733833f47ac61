// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// MurmurLocationTable represents the 'murmur.location' table.
// It holds the per-location high-water mark for comment ids.
type MurmurLocationTable struct {
	Table        string
	Location     string
	MaxCommentID string
}

// MurmurLocation is the schema definition for murmur.location
var MurmurLocation = MurmurLocationTable{
	Table:        "murmur.location",
	Location:     "location",
	MaxCommentID: "maxcommentid",
}

// MurmurCommentTable represents the 'murmur.comment' table
type MurmurCommentTable struct {
	Table       string
	Location    string
	ID          string
	Email       string
	DisplayName string
	Color       string
	Initials    string
	Body        string
	PostedAt    string
}

// MurmurComment is the schema definition for murmur.comment
var MurmurComment = MurmurCommentTable{
	Table:       "murmur.comment",
	Location:    "location",
	ID:          "id",
	Email:       "email",
	DisplayName: "displayname",
	Color:       "color",
	Initials:    "initials",
	Body:        "body",
	PostedAt:    "postedat",
}

// Columns returns all standard column names
func (t MurmurCommentTable) Columns() []string {
	return []string{t.Location, t.ID, t.Email, t.DisplayName, t.Color, t.Initials, t.Body, t.PostedAt}
}
