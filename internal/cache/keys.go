package cache

import (
	"fmt"
	"time"
)

// Policy pairs the memory and disk lifetimes used for one kind of data
type Policy struct {
	Memory time.Duration `json:"memory"`
	Disk   time.Duration `json:"disk"`
}

// Policies holds the lifetimes for each kind of portal data
type Policies struct {
	Account      Policy `json:"account"`
	MeterCurrent Policy `json:"meter_current"`
	Consumption  Policy `json:"consumption"`
}

// DefaultPolicies returns the lifetimes used when none are configured
func DefaultPolicies() Policies {
	return Policies{
		Account:      Policy{Memory: 15 * time.Minute, Disk: time.Hour},
		MeterCurrent: Policy{Memory: 5 * time.Minute, Disk: 30 * time.Minute},
		Consumption:  Policy{Memory: time.Hour, Disk: 24 * time.Hour},
	}
}

// AccountKey names the cached account snapshot for a registration number
func AccountKey(regNo string) string {
	return "account:" + regNo
}

// MeterKey names a single field of a meter, e.g. meter:M-42:unit
func MeterKey(meterNo, field string) string {
	return fmt.Sprintf("meter:%s:%s", meterNo, field)
}

// MeterPattern matches every cached field of a meter
func MeterPattern(meterNo string) string {
	return "meter:" + meterNo + ":*"
}

// ConsumptionKey names a consumption record for a meter, period and date
func ConsumptionKey(meterNo, period, date string) string {
	return fmt.Sprintf("consumption:%s:%s:%s", meterNo, period, date)
}

// ConsumptionPattern matches every consumption record of a meter
func ConsumptionPattern(meterNo string) string {
	return "consumption:" + meterNo + ":*"
}

// InvalidateAccount drops an account snapshot together with the cached fields
// of its meters. It returns the total number of entries removed.
func (m *Manager[V]) InvalidateAccount(regNo string, meterNos ...string) (int, error) {
	total, err := m.InvalidateKey(AccountKey(regNo))
	if err != nil {
		return 0, err
	}

	for _, meterNo := range meterNos {
		n, err := m.InvalidatePattern(MeterPattern(meterNo))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
