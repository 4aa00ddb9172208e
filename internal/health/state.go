// Package health defines the shared health state model and the aggregator
// that folds several signals into one state per indicator.
package health

// State is a normalized health state. Every classifier emits a value from
// its domain's subset; severity comes from Rank, never from the string.
type State string

const (
	Healthy        State = "healthy"
	Warning        State = "warning"
	Degraded       State = "degraded"
	Critical       State = "critical"
	Faulted        State = "faulted"
	Unavail        State = "unavail"
	Unavailable    State = "unavailable"
	Unknown        State = "unknown"
	NotFound       State = "not_found"
	NotInPool      State = "not_in_pool"
	ScrubActive    State = "scrub_active"
	ResilverActive State = "resilver_active"
	ScrubErrors    State = "scrub_errors"

	// Absent marks a slot whose device could not be resolved. No classifier
	// produces it.
	Absent State = "absent"
)

// Domain is a family of health checks that shares a color table.
type Domain string

const (
	Network Domain = "network"
	Smart   Domain = "smart"
	Pool    Domain = "pool"
	Disk    Domain = "disk"
	Scrub   Domain = "scrub"
)

// Domains lists every domain in display order.
var Domains = []Domain{Network, Smart, Pool, Disk, Scrub}

var domainStates = map[Domain][]State{
	Network: {Healthy, Warning, Critical, Unknown},
	Smart:   {Healthy, Warning, Critical, Unavailable, NotFound},
	Pool:    {Healthy, Degraded, Faulted, Unavail, ScrubActive, ResilverActive, ScrubErrors, Unknown},
	Disk:    {Healthy, Degraded, Faulted, NotInPool, NotFound, Unknown},
	Scrub:   {Healthy, ScrubActive, ResilverActive, ScrubErrors},
}

// States returns the states the domain's classifier can emit.
func (d Domain) States() []State {
	return append([]State(nil), domainStates[d]...)
}

// Emits reports whether s belongs to the domain's subset.
func (d Domain) Emits(s State) bool {
	for _, x := range domainStates[d] {
		if x == s {
			return true
		}
	}
	return false
}

// Verdict is a classifier result: the state plus a short human reason.
type Verdict struct {
	State  State
	Reason string
}

// Verdictf is shorthand for building a Verdict.
func Verdictf(s State, reason string) Verdict {
	return Verdict{State: s, Reason: reason}
}
