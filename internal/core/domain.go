package core

import (
	"errors"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Record is a single ledger entry. Records are append-only: they are
	// created once, soft-deleted on request, and never updated in place.
	Record struct {
		ID        int64
		UserID    string
		Amount    Money
		Reason    string
		CreatedAt time.Time
	}

	// UserSettings holds the per-user statistics reset watermark. One row
	// per user, upserted, never deleted by normal operation.
	UserSettings struct {
		UserID         string
		ResetWatermark time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyReason   = errors.New("empty reason")
	ErrEmptyUserID   = errors.New("empty user id")

	// ErrNotFound and ErrNotOwner are distinguishable on purpose: a user
	// deleting a nonexistent record is told "not found", a user deleting
	// someone else's record is told "not yours".
	ErrNotFound = errors.New("record not found")
	ErrNotOwner = errors.New("record owned by another user")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrEmptyUserID
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Reason) == "" {
		return ErrEmptyReason
	}
	if len(r.Reason) > 200 {
		return errors.New("reason too long (max 200 characters)")
	}
	return nil
}
