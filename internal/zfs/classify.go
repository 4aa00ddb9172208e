package zfs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sigreer/baylight/internal/health"
)

// PoolReport is the raw probe output for one pool: the health token from
// zpool list and the full zpool status text.
type PoolReport struct {
	Name   string
	Token  string
	Status string
}

var tokenStates = map[string]health.State{
	StateOnline:   health.Healthy,
	StateDegraded: health.Degraded,
	StateFaulted:  health.Faulted,
	StateUnavail:  health.Unavail,
}

// scrubErrors reports a finished scrub that found errors, as in
// "scrub repaired 0B in 01:02:03 with 4 errors on ...". A clean scrub says
// "with 0 errors" and does not count.
func scrubErrors(status string) bool {
	if !strings.Contains(status, "scrub repaired") {
		return false
	}
	m := scrubWithErrorsRe.FindStringSubmatch(status)
	return m != nil && m[1] != "0"
}

var scrubWithErrorsRe = regexp.MustCompile(`scrub repaired .* with (\d+) errors`)

// ClassifyPool maps a pool health token and its status text to a state.
// A scrub or resilver in progress supersedes the token; a past scrub with
// errors only shows on an otherwise ONLINE pool.
func ClassifyPool(token, status string) health.Verdict {
	token = strings.TrimSpace(token)
	state, ok := tokenStates[token]
	if !ok {
		state = health.Unknown
	}

	switch {
	case strings.Contains(status, "scrub in progress"):
		return health.Verdictf(health.ScrubActive, "scrub in progress")
	case strings.Contains(status, "resilver in progress"):
		return health.Verdictf(health.ResilverActive, "resilver in progress")
	case state == health.Healthy && scrubErrors(status):
		return health.Verdictf(health.ScrubErrors, "last scrub found errors")
	}

	if token == "" {
		return health.Verdictf(state, "no health reported")
	}
	return health.Verdictf(state, token)
}

// Activity reports the scan state of a pool regardless of its health
// token: ResilverActive, ScrubActive, ScrubErrors or Healthy.
func Activity(status string) health.State {
	switch {
	case strings.Contains(status, "resilver in progress"):
		return health.ResilverActive
	case strings.Contains(status, "scrub in progress"):
		return health.ScrubActive
	case scrubErrors(status):
		return health.ScrubErrors
	}
	return health.Healthy
}

var diskTokenStates = map[string]health.State{
	StateOnline:   health.Healthy,
	StateDegraded: health.Degraded,
	StateFaulted:  health.Faulted,
	StateOffline:  health.Faulted,
	StateUnavail:  health.Faulted,
	StateRemoved:  health.Faulted,
}

// ClassifyDisk finds the first pool, in listing order, whose status text
// mentions the device and reads the state printed after its name. Partition
// names (sda1, nvme0n1p2) count as the device. A device that is mentioned
// but whose state cannot be read is assumed ONLINE.
func ClassifyDisk(device string, pools []PoolReport) health.Verdict {
	name := device[strings.LastIndex(device, "/")+1:]
	if name == "" {
		return health.Verdictf(health.NotFound, "no device")
	}

	re := regexp.MustCompile(`(?m)(?:^|[\s/])` + regexp.QuoteMeta(name) + `(?:p?\d+)?\s+([A-Z]+)\b`)
	for _, p := range pools {
		if !strings.Contains(p.Status, name) {
			continue
		}
		m := re.FindStringSubmatch(p.Status)
		if m == nil {
			return health.Verdictf(health.Healthy, fmt.Sprintf("%s in %s, state unreadable", name, p.Name))
		}
		if s, ok := diskTokenStates[m[1]]; ok {
			return health.Verdictf(s, fmt.Sprintf("%s %s in %s", name, m[1], p.Name))
		}
		return health.Verdictf(health.Healthy, fmt.Sprintf("%s %s in %s", name, m[1], p.Name))
	}
	return health.Verdictf(health.NotInPool, name+" not in any pool")
}

// ClassifyPools aggregates every pool. No pools at all is Unavail.
func ClassifyPools(pools []PoolReport) health.Verdict {
	if len(pools) == 0 {
		return health.Verdictf(health.Unavail, "no pools")
	}
	vs := make([]health.Verdict, len(pools))
	for i, p := range pools {
		v := ClassifyPool(p.Token, p.Status)
		v.Reason = p.Name + ": " + v.Reason
		vs[i] = v
	}
	return health.AggregateVerdicts(vs...)
}

// ClassifyScrub reports the most urgent scan activity across pools:
// resilver, then scrub, then errors from the last scrub.
func ClassifyScrub(pools []PoolReport) health.Verdict {
	if len(pools) == 0 {
		return health.Verdictf(health.Healthy, "no pools")
	}
	vs := make([]health.Verdict, len(pools))
	for i, p := range pools {
		s := Activity(p.Status)
		vs[i] = health.Verdictf(s, p.Name+": "+string(s))
	}
	return health.AggregateVerdicts(vs...)
}
