// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/pkg/initials"
)

// # Service Layer

// Service orchestrates profile reads and renames on top of a [Repository].
type Service struct {
	repository Repository
	logger     *slog.Logger
}

// NewService constructs a new [Service] with its repository dependency.
func NewService(repository Repository, logger *slog.Logger) *Service {
	return &Service{repository: repository, logger: logger}
}

/*
Profile retrieves the public identity of a registered user.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - sec.Identity: The user's display attributes
  - error: apperr.NotFound or storage failures
*/
func (service *Service) Profile(context context.Context, email string) (sec.Identity, error) {
	user, err := service.repository.FindByEmail(context, email)
	if err != nil {
		return sec.Identity{}, fmt.Errorf("account_service_profile_failed: %w", err)
	}
	return user.Identity(), nil
}

/*
Rename changes a user's display name and rederives the initials.

The color is keyed to the email and therefore survives renames.

Parameters:
  - context: context.Context
  - email: string
  - displayName: string (raw user input)

Returns:
  - sec.Identity: The updated identity
  - error: apperr.ValidationError, apperr.NotFound or storage failures
*/
func (service *Service) Rename(context context.Context, email, displayName string) (sec.Identity, error) {
	name, err := NormalizeDisplayName(displayName)
	if err != nil {
		return sec.Identity{}, err
	}

	userInitials := initials.From(name)
	if err := service.repository.Rename(context, email, name, userInitials); err != nil {
		return sec.Identity{}, fmt.Errorf("account_service_rename_failed: %w", err)
	}

	service.logger.InfoContext(context, "account_renamed", slog.String("email", email))

	return sec.Identity{
		Email:       email,
		DisplayName: name,
		Color:       ColorFor(email),
		Initials:    userInitials,
	}, nil
}
