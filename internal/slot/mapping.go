// Package slot resolves front panel bay numbers to block devices.
package slot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigreer/baylight/internal/fault"
)

// Bays is the number of drive bays on the panel.
const Bays = 8

// ErrIndexOutOfRange is returned for slot indexes outside [0, Bays).
var ErrIndexOutOfRange = errors.New("slot index out of range")

// Strategy selects how a slot's identity key is matched to a device.
type Strategy string

const (
	// ByControllerPort matches the ATA port (ata3) in the /sys/block link.
	ByControllerPort Strategy = "ata"
	// ByBusAddress matches the SCSI address H:C:T:L reported by lsblk.
	ByBusAddress Strategy = "hctl"
	// BySerialNumber matches the drive serial reported by lsblk.
	BySerialNumber Strategy = "serial"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case ByControllerPort, ByBusAddress, BySerialNumber:
		return st, nil
	}
	return "", fmt.Errorf("mapping strategy %q: %w", s, fault.ErrInvalidConfig)
}

// Mapping is the ordered identity table, one key per slot. It is fixed at
// construction.
type Mapping struct {
	strategy Strategy
	keys     []string
}

// Strategy returns the matching strategy.
func (m Mapping) Strategy() Strategy { return m.strategy }

// Key returns the identity key of slot i. ok is false for out of range
// slots and slots without a key.
func (m Mapping) Key(i int) (string, bool) {
	if i < 0 || i >= len(m.keys) || m.keys[i] == "" {
		return "", false
	}
	return m.keys[i], true
}

// Keys returns a copy of the table.
func (m Mapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

// ModelOverride replaces the default tables on a known chassis.
type ModelOverride struct {
	Pattern   string
	Ports     []string
	Addresses []string
}

// ModelOverrides is the closed set of chassis with non-identity bay wiring.
// The first entry whose pattern is contained in the product name applies.
var ModelOverrides = []ModelOverride{
	{
		Pattern:   "DXP6800",
		Ports:     []string{"ata3", "ata4", "ata5", "ata6", "ata1", "ata2"},
		Addresses: []string{"2:0:0:0", "3:0:0:0", "4:0:0:0", "5:0:0:0", "0:0:0:0", "1:0:0:0"},
	},
}

func defaultPorts() []string {
	keys := make([]string, Bays)
	for i := range keys {
		keys[i] = "ata" + strconv.Itoa(i+1)
	}
	return keys
}

func defaultAddresses() []string {
	keys := make([]string, Bays)
	for i := range keys {
		keys[i] = strconv.Itoa(i) + ":0:0:0"
	}
	return keys
}

// Override returns the override matching the product name, if any.
func Override(product string) (ModelOverride, bool) {
	if product == "" {
		return ModelOverride{}, false
	}
	for _, o := range ModelOverrides {
		if strings.Contains(product, o.Pattern) {
			return o, true
		}
	}
	return ModelOverride{}, false
}

// NewMapping builds the table for a strategy and product name. Serials are
// only used by BySerialNumber.
func NewMapping(st Strategy, product string, serials []string) (Mapping, error) {
	m := Mapping{strategy: st}
	o, hasOverride := Override(product)

	switch st {
	case ByControllerPort:
		m.keys = defaultPorts()
		if hasOverride {
			m.keys = append([]string(nil), o.Ports...)
		}
	case ByBusAddress:
		m.keys = defaultAddresses()
		if hasOverride {
			m.keys = append([]string(nil), o.Addresses...)
		}
	case BySerialNumber:
		if len(serials) == 0 {
			return Mapping{}, fmt.Errorf("serial mapping needs serials: %w", fault.ErrInvalidConfig)
		}
		m.keys = make([]string, 0, Bays)
		for _, s := range serials {
			m.keys = append(m.keys, strings.TrimSpace(s))
		}
	default:
		return Mapping{}, fmt.Errorf("mapping strategy %q: %w", st, fault.ErrInvalidConfig)
	}

	if len(m.keys) > Bays {
		m.keys = m.keys[:Bays]
	}
	return m, nil
}
