package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrTestClockNotFound = errors.New("test_clock_not_found")
	ErrInvalidClockName  = errors.New("invalid_clock_name")
	ErrInvalidAdvance    = errors.New("invalid_advance_duration")
	ErrAdvanceInProgress = errors.New("advance_in_progress")
)

type Status string

const (
	// StatusReady means the clock sits at FrozenTime and can be advanced.
	StatusReady Status = "ready"
	// StatusAdvancing is held while due payments settle at the new time.
	StatusAdvancing Status = "advancing"
)

const MaxClockNameLen = 64

// TestClock freezes simulated time for the subscriptions pinned to it.
// Advancing the clock moves FrozenTime forward and settles every pinned
// subscription that became due.
type TestClock struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Name       string       `gorm:"not null;size:64" json:"name"`
	FrozenTime time.Time    `gorm:"not null" json:"frozen_time"`
	Status     Status       `gorm:"not null;default:ready" json:"status"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (TestClock) TableName() string {
	return "test_clocks"
}
