// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashCode hashes a verification code using the bcrypt algorithm.
//
// Codes are short, so the stored value must be slow to brute force if the
// verification table leaks.
func HashCode(code string, cost int) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(code), cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash code: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckCode compares a plain-text code with its hashed version.
func CheckCode(code, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(code))
	return err == nil
}

// HashToken returns the hex SHA-256 digest stored in place of a raw token.
//
// Tokens carry 256 bits of randomness, so a fast digest is enough and keeps
// lookups deterministic.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
