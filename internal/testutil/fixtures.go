package testutil

import (
	"sync"
	"time"
)

// Meter is a trimmed-down portal meter used as a cache value in tests
type Meter struct {
	No          string    `json:"no"`
	Type        string    `json:"type"`
	Unit        float64   `json:"unit"`
	Credit      float64   `json:"credit"`
	LastUpdated time.Time `json:"last_updated"`
}

// Account is a trimmed-down portal account used as a cache value in tests
type Account struct {
	RegNo  string  `json:"reg_no"`
	Name   string  `json:"name"`
	Meters []Meter `json:"meters"`
}

// NewAccount returns an account with two meters
func NewAccount(regNo string) Account {
	updated := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	return Account{
		RegNo: regNo,
		Name:  "Test Household",
		Meters: []Meter{
			{No: "E-100", Type: "electric", Unit: 152.4, Credit: 21.35, LastUpdated: updated},
			{No: "W-200", Type: "water", Unit: 31.7, Credit: 8.9, LastUpdated: updated},
		},
	}
}

// FakeClock is a manually advanced time source
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock starts a clock at a fixed instant
func NewFakeClock() *FakeClock {
	return &FakeClock{current: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the clock's current time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
