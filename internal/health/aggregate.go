package health

// rank orders states by severity. States on the same row are equally severe.
// NotInPool sits just above Healthy so a drive outside every pool is still
// shown. Operational pool states sit below the unknown band so an in-progress
// scrub never hides a device the tools could not read.
var rank = map[State]int{
	Healthy: 0,

	NotInPool: 1,

	ScrubErrors:    2,
	ScrubActive:    3,
	ResilverActive: 4,

	Unknown:     5,
	Unavailable: 5,
	NotFound:    5,
	Unavail:     5,

	Warning:  6,
	Degraded: 6,

	Critical: 7,
	Faulted:  7,
}

const absoluteRank = 7

// Rank returns the severity of s. States outside the table rank as Unknown.
func Rank(s State) int {
	if r, ok := rank[s]; ok {
		return r
	}
	return rank[Unknown]
}

// Absolute reports whether s ends aggregation outright.
func Absolute(s State) bool {
	return Rank(s) >= absoluteRank
}

// Aggregate returns the worst of states. A later state replaces the running
// result only when strictly more severe, so among equals the first seen wins.
// Once Critical or Faulted is seen the result is fixed. No input yields Unknown.
func Aggregate(states ...State) State {
	if len(states) == 0 {
		return Unknown
	}

	worst := Healthy
	for _, s := range states {
		if Rank(s) > Rank(worst) {
			worst = s
		}
		if Absolute(worst) {
			break
		}
	}
	return worst
}

// AggregateVerdicts is Aggregate over verdicts, keeping the reason of the
// verdict that determined the result.
func AggregateVerdicts(vs ...Verdict) Verdict {
	if len(vs) == 0 {
		return Verdictf(Unknown, "no signals")
	}

	worst := Verdict{State: Healthy, Reason: vs[0].Reason}
	for _, v := range vs {
		if Rank(v.State) > Rank(worst.State) {
			worst = v
		}
		if Absolute(worst.State) {
			break
		}
	}
	return worst
}
