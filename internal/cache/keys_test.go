package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyBuilders(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"account", AccountKey("REG-001"), "account:REG-001"},
		{"meter field", MeterKey("E-100", "unit"), "meter:E-100:unit"},
		{"meter pattern", MeterPattern("E-100"), "meter:E-100:*"},
		{"consumption", ConsumptionKey("E-100", "daily", "2026-03-01"), "consumption:E-100:daily:2026-03-01"},
		{"consumption pattern", ConsumptionPattern("E-100"), "consumption:E-100:*"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestDefaultPolicies(t *testing.T) {
	p := DefaultPolicies()

	assert.Equal(t, Policy{Memory: 15 * time.Minute, Disk: time.Hour}, p.Account)
	assert.Equal(t, Policy{Memory: 5 * time.Minute, Disk: 30 * time.Minute}, p.MeterCurrent)
	assert.Equal(t, Policy{Memory: time.Hour, Disk: 24 * time.Hour}, p.Consumption)
}
