package service

import "github.com/justaplayground/devnet/internal/apperror"

var (
	ErrEmptyTitle    = apperror.New(apperror.Validation, "title is required")
	ErrEmptyContent  = apperror.New(apperror.Validation, "content is required")
	ErrEmptySlug     = apperror.New(apperror.Validation, "title must contain at least one letter or digit")
	ErrInvalidStatus = apperror.New(apperror.Validation, "status must be draft or published")
	ErrInvalidTag    = apperror.New(apperror.Validation, "tag name must contain at least one letter or digit")
	ErrEmptyComment  = apperror.New(apperror.Validation, "comment body is required")
	ErrUnknownRole   = apperror.New(apperror.Validation, "role must be admin or moderator")

	ErrLastAdmin = apperror.New(apperror.Authorization, "last admin")

	ErrTagConflict     = apperror.New(apperror.Conflict, "tag was created concurrently, retry")
	ErrProfileConflict = apperror.New(apperror.Conflict, "could not allocate a unique username, retry")
)
