package zfs

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Pool and vdev states as printed by zpool
const (
	StateOnline   = "ONLINE"
	StateDegraded = "DEGRADED"
	StateFaulted  = "FAULTED"
	StateOffline  = "OFFLINE"
	StateRemoved  = "REMOVED"
	StateUnavail  = "UNAVAIL"
)

// Scan states
const (
	ScanNone     = "none"
	ScanScrub    = "scrub"
	ScanResilver = "resilver"
)

// PoolHealth is the structured form of one pool's zpool status block.
type PoolHealth struct {
	Name        string       `json:"name"`
	State       string       `json:"state"`
	Status      string       `json:"status,omitempty"`
	Action      string       `json:"action,omitempty"`
	ScanState   string       `json:"scan_state,omitempty"`
	ScanPercent float64      `json:"scan_percent,omitempty"`
	ScanMessage string       `json:"scan_message,omitempty"`
	Errors      string       `json:"errors,omitempty"`
	Vdevs       []VdevHealth `json:"vdevs"`
	TotalErrors int64        `json:"total_errors"`
}

// VdevHealth is one row of the config table. Depth 0 is the pool itself.
type VdevHealth struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Depth     int    `json:"depth"`
	ReadErrs  int64  `json:"read_errors"`
	WriteErrs int64  `json:"write_errors"`
	CksumErrs int64  `json:"cksum_errors"`
}

// Leaves returns the vdev rows that name block devices.
func (p *PoolHealth) Leaves() []VdevHealth {
	var out []VdevHealth
	for _, v := range p.Vdevs {
		if isDeviceName(v.Name) {
			out = append(out, v)
		}
	}
	return out
}

// ParseStatus parses the output of zpool status -vL for one or more pools.
func ParseStatus(output string) []*PoolHealth {
	var pools []*PoolHealth
	var current *PoolHealth
	var inConfig, inScan bool
	baseIndent := -1

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "pool:") {
			if current != nil {
				pools = append(pools, current)
			}
			current = &PoolHealth{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "pool:"))}
			inConfig, inScan = false, false
			baseIndent = -1
			continue
		}
		if current == nil {
			continue
		}

		if inScan && trimmed != "" && (!strings.Contains(trimmed, ":") || strings.Contains(trimmed, "% done")) {
			// continuation of a multi-line scan message
			current.ScanMessage += " " + trimmed
			parseScanState(current)
			continue
		}
		inScan = false

		switch {
		case strings.HasPrefix(trimmed, "state:"):
			current.State = strings.TrimSpace(strings.TrimPrefix(trimmed, "state:"))
			continue
		case strings.HasPrefix(trimmed, "status:"):
			current.Status = strings.TrimSpace(strings.TrimPrefix(trimmed, "status:"))
			continue
		case strings.HasPrefix(trimmed, "action:"):
			current.Action = strings.TrimSpace(strings.TrimPrefix(trimmed, "action:"))
			continue
		case strings.HasPrefix(trimmed, "scan:"):
			current.ScanMessage = strings.TrimSpace(strings.TrimPrefix(trimmed, "scan:"))
			parseScanState(current)
			inScan = true
			continue
		case strings.HasPrefix(trimmed, "errors:"):
			current.Errors = strings.TrimSpace(strings.TrimPrefix(trimmed, "errors:"))
			inConfig = false
			continue
		case strings.HasPrefix(trimmed, "config:"):
			inConfig = true
			continue
		}

		if !inConfig || trimmed == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "NAME" {
			continue
		}

		indent := indentWidth(line)
		if baseIndent < 0 {
			baseIndent = indent
		}
		v := VdevHealth{Name: fields[0], Depth: (indent - baseIndent) / 2}
		if len(fields) > 1 {
			v.State = fields[1]
		}
		if len(fields) >= 5 {
			v.ReadErrs = parseCount(fields[2])
			v.WriteErrs = parseCount(fields[3])
			v.CksumErrs = parseCount(fields[4])
		}
		current.TotalErrors += v.ReadErrs + v.WriteErrs + v.CksumErrs
		current.Vdevs = append(current.Vdevs, v)
	}

	if current != nil {
		pools = append(pools, current)
	}
	return pools
}

// indentWidth counts leading whitespace, a tab being worth 8 columns.
func indentWidth(line string) int {
	w := 0
	for _, c := range line {
		switch c {
		case ' ':
			w++
		case '\t':
			w += 8
		default:
			return w
		}
	}
	return w
}

// parseCount reads an error counter; zpool abbreviates large values (1.2K).
func parseCount(s string) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	mult := map[byte]float64{'K': 1e3, 'M': 1e6, 'G': 1e9}
	if len(s) > 1 {
		if m, ok := mult[s[len(s)-1]]; ok {
			if f, err := strconv.ParseFloat(s[:len(s)-1], 64); err == nil {
				return int64(f * m)
			}
		}
	}
	return 0
}

var percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

func parseScanState(p *PoolHealth) {
	msg := p.ScanMessage
	switch {
	case strings.Contains(msg, "scrub in progress"):
		p.ScanState = ScanScrub
	case strings.Contains(msg, "resilver in progress"):
		p.ScanState = ScanResilver
	default:
		p.ScanState = ScanNone
		return
	}
	if m := percentRe.FindStringSubmatch(msg); m != nil {
		p.ScanPercent, _ = strconv.ParseFloat(m[1], 64)
	}
}

func isDeviceName(name string) bool {
	for _, prefix := range []string{"sd", "nvme", "hd", "vd", "xvd", "/dev/"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
