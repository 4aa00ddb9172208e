// Package network classifies link health from interface state and an
// optional reachability probe.
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/health"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/probe"
)

// Interface is one network link as seen by the classifier.
type Interface struct {
	Name   string
	Up     bool
	Bridge bool
}

// Connectivity is the outcome of the reachability probe.
type Connectivity int

const (
	NotAttempted Connectivity = iota
	Reachable
	Unreachable
)

func (c Connectivity) String() string {
	switch c {
	case Reachable:
		return "reachable"
	case Unreachable:
		return "unreachable"
	default:
		return "not attempted"
	}
}

// Classify maps interface state and connectivity to a network state.
// A bridge that is up is trusted on its own; physical links also need a
// successful reachability probe.
func Classify(ifaces []Interface, conn Connectivity) health.Verdict {
	if len(ifaces) == 0 {
		return health.Verdictf(health.Unknown, "no interfaces to check")
	}

	up := lo.Filter(ifaces, func(i Interface, _ int) bool { return i.Up })
	if len(up) == 0 {
		return health.Verdictf(health.Critical, "all interfaces down")
	}

	if br, ok := lo.Find(up, func(i Interface) bool { return i.Bridge }); ok {
		return health.Verdictf(health.Healthy, "bridge "+br.Name+" up")
	}
	if conn == Reachable {
		return health.Verdictf(health.Healthy, fmt.Sprintf("%d interface(s) up, target reachable", len(up)))
	}
	return health.Verdictf(health.Warning, fmt.Sprintf("%d interface(s) up, target %s", len(up), conn))
}

// Autodetect prefixes. Anything not matching an include prefix is ignored.
var (
	excludePrefixes = []string{"lo", "docker", "veth", "virbr"}
	includePrefixes = []string{"eth", "ens", "enp", "eno", "br", "bond"}
)

// IsBridge reports whether a link name follows the bridge naming convention.
func IsBridge(name string) bool {
	return strings.HasPrefix(name, "br")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	return lo.SomeBy(prefixes, func(p string) bool { return strings.HasPrefix(s, p) })
}

// ipLink is one entry of `ip -j -d link show`.
type ipLink struct {
	Name      string `json:"ifname"`
	OperState string `json:"operstate"`
	LinkInfo  *struct {
		Kind string `json:"info_kind"`
	} `json:"linkinfo,omitempty"`
}

func (l ipLink) toInterface() Interface {
	return Interface{
		Name:   l.Name,
		Up:     l.OperState == "UP",
		Bridge: IsBridge(l.Name) || (l.LinkInfo != nil && l.LinkInfo.Kind == "bridge"),
	}
}

// ParseLinks parses iproute2 JSON link output.
func ParseLinks(out string) ([]Interface, error) {
	var links []ipLink
	if err := json.Unmarshal([]byte(out), &links); err != nil {
		return nil, fmt.Errorf("ip link: %w: %w", fault.ErrParseAmbiguous, err)
	}
	return lo.Map(links, func(l ipLink, _ int) Interface { return l.toInterface() }), nil
}

// Select picks the monitored interfaces. Explicit names are kept in order,
// and names missing from the system count as down. With no names the
// candidates are auto-detected by prefix.
func Select(all []Interface, names []string) []Interface {
	if len(names) == 0 {
		return lo.Filter(all, func(i Interface, _ int) bool {
			return !hasAnyPrefix(i.Name, excludePrefixes) && hasAnyPrefix(i.Name, includePrefixes)
		})
	}

	byName := lo.KeyBy(all, func(i Interface) string { return i.Name })
	return lo.Map(lo.Uniq(names), func(n string, _ int) Interface {
		if i, ok := byName[n]; ok {
			return i
		}
		return Interface{Name: n, Bridge: IsBridge(n)}
	})
}

// Prober gathers interface state and reachability.
type Prober struct {
	Runner     probe.Runner
	Interfaces []string
	Target     string
	Count      int
	Timeout    int

	log *slog.Logger
}

// NewProber returns a Prober. An empty target disables the ping probe.
func NewProber(r probe.Runner, interfaces []string, target string, count, timeout int) *Prober {
	return &Prober{
		Runner:     r,
		Interfaces: interfaces,
		Target:     target,
		Count:      count,
		Timeout:    timeout,
		log:        logging.Component("network"),
	}
}

// Links returns the monitored interfaces.
func (p *Prober) Links(ctx context.Context) ([]Interface, error) {
	res, err := p.Runner.Run(ctx, probe.Cmd("ip", "-j", "-d", "link", "show"))
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("ip link exited %d: %w", res.ExitCode, fault.ErrProbeUnavailable)
	}
	all, err := ParseLinks(res.Stdout)
	if err != nil {
		return nil, err
	}
	return Select(all, p.Interfaces), nil
}

// Ping runs the reachability probe.
func (p *Prober) Ping(ctx context.Context) Connectivity {
	if p.Target == "" {
		return NotAttempted
	}
	res, err := p.Runner.Run(ctx, probe.Cmd("ping",
		"-c", strconv.Itoa(p.Count), "-W", strconv.Itoa(p.Timeout), p.Target))
	if err != nil {
		p.log.Debug("ping unavailable", "error", err)
		return Unreachable
	}
	if res.ExitCode != 0 {
		return Unreachable
	}
	return Reachable
}

// Check runs the probes and classifies the result. Probe failures yield
// Unknown, never an error.
func (p *Prober) Check(ctx context.Context) health.Verdict {
	ifaces, err := p.Links(ctx)
	if err != nil {
		p.log.Warn("link state unavailable", "error", err)
		return health.Verdictf(health.Unknown, "link state unavailable")
	}

	conn := NotAttempted
	if lo.SomeBy(ifaces, func(i Interface) bool { return i.Up }) {
		conn = p.Ping(ctx)
	}

	for _, i := range ifaces {
		p.log.Debug("interface", "name", i.Name, "up", i.Up, "bridge", i.Bridge)
	}
	return Classify(ifaces, conn)
}
