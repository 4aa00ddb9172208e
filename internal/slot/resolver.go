package slot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/sigreer/baylight/internal/cache"
	"github.com/sigreer/baylight/internal/fault"
	"github.com/sigreer/baylight/internal/logging"
	"github.com/sigreer/baylight/internal/probe"
)

// DefaultSysBlock is the kernel's block device directory.
const DefaultSysBlock = "/sys/block"

const lsblkKey = "lsblk:scsi"

var sdNameRe = regexp.MustCompile(`^sd[a-z]+$`)

// BlockDevice is one row of lsblk -S.
type BlockDevice struct {
	Name   string    `json:"name"`
	HCTL   string    `json:"hctl"`
	Serial string    `json:"serial"`
	Model  string    `json:"model"`
	Size   byteCount `json:"size"`
}

type lsblkOutput struct {
	Blockdevices []BlockDevice `json:"blockdevices"`
}

// byteCount accepts both the numeric and the quoted form lsblk -b emits,
// depending on util-linux version.
type byteCount uint64

func (b *byteCount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*b = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("size %s: %w", data, fault.ErrParseAmbiguous)
	}
	*b = byteCount(n)
	return nil
}

// Resolver maps slot indexes to device paths.
type Resolver struct {
	Runner probe.Runner
	// SysBlock is listed for controller port resolution.
	SysBlock string

	mapping Mapping
	product string
	devices *cache.Cache[[]BlockDevice]
	log     *slog.Logger
}

// DetectProduct reads the chassis product name. Failures yield "".
func DetectProduct(ctx context.Context, r probe.Runner) string {
	res, err := r.Run(ctx, probe.Cmd("dmidecode", "--string", "system-product-name"))
	if err != nil || res.ExitCode != 0 {
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// NewResolver detects the chassis once and builds the slot mapping.
func NewResolver(ctx context.Context, r probe.Runner, st Strategy, serials []string) (*Resolver, error) {
	product := DetectProduct(ctx, r)
	m, err := NewMapping(st, product, serials)
	if err != nil {
		return nil, err
	}

	log := logging.Component("slot")
	if o, ok := Override(product); ok {
		log.Info("chassis mapping override", "product", product, "pattern", o.Pattern)
	} else {
		log.Debug("generic bay mapping", "product", product)
	}

	return &Resolver{
		Runner:   r,
		SysBlock: DefaultSysBlock,
		mapping:  m,
		product:  product,
		devices:  cache.New[[]BlockDevice](),
		log:      log,
	}, nil
}

// Mapping returns the slot table in use.
func (r *Resolver) Mapping() Mapping { return r.mapping }

// Product returns the detected chassis product name.
func (r *Resolver) Product() string { return r.product }

// Refresh drops cached device tables so the next lookup re-reads them.
func (r *Resolver) Refresh() {
	r.devices.Clear()
}

// Resolve returns the device path for slot index. ok is false when the slot
// has no key, nothing matches, or the lookup failed.
func (r *Resolver) Resolve(ctx context.Context, index int) (string, bool) {
	dev, err := r.resolve(ctx, index)
	if err != nil {
		r.log.Debug("slot unresolved", "slot", index, "error", err)
		return "", false
	}
	return dev, true
}

func (r *Resolver) resolve(ctx context.Context, index int) (string, error) {
	if index < 0 || index >= Bays {
		return "", fmt.Errorf("slot %d: %w", index, ErrIndexOutOfRange)
	}
	key, ok := r.mapping.Key(index)
	if !ok {
		return "", fmt.Errorf("slot %d has no %s key: %w", index, r.mapping.Strategy(), fault.ErrDeviceAbsent)
	}

	switch r.mapping.Strategy() {
	case ByControllerPort:
		return r.byPort(ctx, key)
	case ByBusAddress:
		return r.byField(ctx, key, func(d BlockDevice) string { return d.HCTL })
	case BySerialNumber:
		return r.byField(ctx, key, func(d BlockDevice) string { return d.Serial })
	}
	return "", fmt.Errorf("strategy %q: %w", r.mapping.Strategy(), fault.ErrInvalidConfig)
}

// byPort lists /sys/block in name order and returns the first sd device
// whose link target passes through the port directory.
func (r *Resolver) byPort(ctx context.Context, port string) (string, error) {
	res, err := r.Runner.Run(ctx, probe.Cmd("ls", "-1", r.SysBlock))
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("ls %s exited %d: %w", r.SysBlock, res.ExitCode, fault.ErrProbeUnavailable)
	}

	names := lo.Filter(strings.Fields(res.Stdout), func(name string, _ int) bool {
		return sdNameRe.MatchString(name)
	})
	sort.Strings(names)

	for _, name := range names {
		link, err := r.Runner.Run(ctx, probe.Cmd("readlink", path.Join(r.SysBlock, name)))
		if err != nil || link.ExitCode != 0 {
			continue
		}
		if lo.Contains(strings.Split(strings.TrimSpace(link.Stdout), "/"), port) {
			return "/dev/" + name, nil
		}
	}
	return "", fmt.Errorf("no device on %s: %w", port, fault.ErrDeviceAbsent)
}

func (r *Resolver) byField(ctx context.Context, key string, field func(BlockDevice) string) (string, error) {
	devs, err := r.Devices(ctx)
	if err != nil {
		return "", err
	}
	if d, ok := lo.Find(devs, func(d BlockDevice) bool { return field(d) == key }); ok {
		return "/dev/" + d.Name, nil
	}
	return "", fmt.Errorf("no device matches %s: %w", key, fault.ErrDeviceAbsent)
}

// Devices returns the SCSI block device table, cached for cache.TTLFast.
func (r *Resolver) Devices(ctx context.Context) ([]BlockDevice, error) {
	return r.devices.GetOrLoad(lsblkKey, cache.TTLFast, func() ([]BlockDevice, error) {
		res, err := r.Runner.Run(ctx, probe.Cmd("lsblk", "-S", "-J", "-b", "-o", "NAME,HCTL,SERIAL,MODEL,SIZE"))
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, fmt.Errorf("lsblk exited %d: %w", res.ExitCode, fault.ErrProbeUnavailable)
		}
		var out lsblkOutput
		if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
			return nil, fmt.Errorf("lsblk: %w: %w", fault.ErrParseAmbiguous, err)
		}
		for i := range out.Blockdevices {
			d := &out.Blockdevices[i]
			d.Serial = strings.TrimSpace(d.Serial)
			d.Model = strings.TrimSpace(d.Model)
		}
		return out.Blockdevices, nil
	})
}

// Resolution is one row of the bay table.
type Resolution struct {
	Index  int
	Key    string
	Device string
	Found  bool
	Model  string
	Serial string
	Size   uint64
}

// Table resolves every bay and joins the lsblk details of found devices.
func (r *Resolver) Table(ctx context.Context) []Resolution {
	devs, _ := r.Devices(ctx)
	byName := lo.KeyBy(devs, func(d BlockDevice) string { return d.Name })

	rows := make([]Resolution, Bays)
	for i := range rows {
		row := Resolution{Index: i}
		row.Key, _ = r.mapping.Key(i)
		row.Device, row.Found = r.Resolve(ctx, i)
		if d, ok := byName[strings.TrimPrefix(row.Device, "/dev/")]; ok && row.Found {
			row.Model, row.Serial, row.Size = d.Model, d.Serial, uint64(d.Size)
		}
		rows[i] = row
	}
	return rows
}
