package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/justaplayground/devnet/internal/apperror"
)

var (
	ErrPostNotFound    = apperror.New(apperror.NotFound, "post not found")
	ErrTagNotFound     = apperror.New(apperror.NotFound, "tag not found")
	ErrProfileNotFound = apperror.New(apperror.NotFound, "profile not found")
	ErrSlugTaken       = apperror.New(apperror.Conflict, "slug is already taken, retry")
	ErrStatusChanged   = apperror.New(apperror.Conflict, "post status changed concurrently, retry")
)

// notFound maps gorm's missing-row error to sentinel and leaves every other
// error untouched.
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func conn(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
