// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # Caller Identity

// Identity is the public projection of whoever is making a request.
//
// It is what a valid access token resolves to, and what every comment
// is stamped with. Anonymous callers get [Anonymous].
type Identity struct {
	Email       string `json:"email"`
	DisplayName string `json:"username"`
	Color       string `json:"color"`
	Initials    string `json:"initial"`
}

const (
	anonymousName    = "Anonymous"
	anonymousColor   = "#1d3557"
	anonymousInitial = "/"
)

// Anonymous returns the identity used when no valid token is presented.
func Anonymous() Identity {
	return Identity{
		Email:       "",
		DisplayName: anonymousName,
		Color:       anonymousColor,
		Initials:    anonymousInitial,
	}
}

// IsAnonymous reports whether the identity is not bound to any email.
func (i Identity) IsAnonymous() bool {
	return i.Email == ""
}
