// Package cpusampler exposes CPU usage as Sparkplug metrics, sampled
// from /proc/stat. The aggregate "cpu" line becomes a Node-level
// usage/idle metric pair; each per-core "cpuN" line becomes its own
// Device with the same metric pair.
package cpusampler

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hollowoak/sparkplug-edge/internal/sparkplug"
)

// core tracks one /proc/stat line's previous jiffie counts, plus the
// usage/idle metric pair it reports into — whether that pair lives on
// the Node itself (the aggregate line) or on a per-core Device.
type core struct {
	usage *sparkplug.Metric
	idle  *sparkplug.Metric

	lastTotal uint64
	lastIdle  uint64
	primed    bool // lastTotal/lastIdle hold a real reading
}

func newCore(logger *slog.Logger) *core {
	return &core{
		usage: sparkplug.NewMetric("usage", sparkplug.TypeDouble, 0.0, sparkplug.WithLogger(logger)),
		idle:  sparkplug.NewMetric("idle", sparkplug.TypeDouble, 0.0, sparkplug.WithLogger(logger)),
	}
}

// Sampler owns a Node-level aggregate usage/idle pair and one Device
// per additional CPU core found in /proc/stat at construction. The
// core count is fixed for the sampler's lifetime; a hot-plugged CPU
// requires a new Sampler.
type Sampler struct {
	path    string
	total   *core
	perCore []*core
	devices []*sparkplug.Device
	logger  *slog.Logger
}

// New builds a Sampler by reading path once to discover the CPU count.
// path is almost always "/proc/stat"; tests pass a fixture file.
func New(path string, publishPeriodMs int32, logger *slog.Logger) (*Sampler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lines, err := cpuLines(path)
	if err != nil {
		return nil, fmt.Errorf("cpusampler: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("cpusampler: no cpu lines found in %s", path)
	}

	s := &Sampler{path: path, total: newCore(logger), logger: logger}
	for i := 1; i < len(lines); i++ {
		c := newCore(logger)
		d := sparkplug.NewDevice(fmt.Sprintf("cpu%d", i-1), publishPeriodMs, logger)
		if err := d.AddMetric(c.usage); err != nil {
			return nil, fmt.Errorf("cpusampler: %w", err)
		}
		if err := d.AddMetric(c.idle); err != nil {
			return nil, fmt.Errorf("cpusampler: %w", err)
		}
		s.perCore = append(s.perCore, c)
		s.devices = append(s.devices, d)
	}
	return s, nil
}

// Devices returns one Device per core (excluding the aggregate), in
// cpu0, cpu1, ... order, ready for Node.AddDevice.
func (s *Sampler) Devices() []*sparkplug.Device {
	return append([]*sparkplug.Device(nil), s.devices...)
}

// AttachTotal registers the aggregate usage/idle metric pair directly
// on node. Call once, before Node.Enable.
func (s *Sampler) AttachTotal(node *sparkplug.Node) error {
	if err := node.AddMetric(s.total.usage); err != nil {
		return fmt.Errorf("cpusampler: %w", err)
	}
	if err := node.AddMetric(s.total.idle); err != nil {
		return fmt.Errorf("cpusampler: %w", err)
	}
	return nil
}

// Sample re-reads /proc/stat and updates the aggregate and every
// core's usage/idle metrics with the percentage change since the
// previous Sample call. The first Sample after construction always
// reports 0/0, since there is no prior reading to delta against.
func (s *Sampler) Sample() error {
	lines, err := cpuLines(s.path)
	if err != nil {
		return fmt.Errorf("cpusampler: %w", err)
	}
	if len(lines) != len(s.perCore)+1 {
		return fmt.Errorf("cpusampler: cpu count changed (%d -> %d)", len(s.perCore)+1, len(lines))
	}

	if j, err := parseJiffies(lines[0]); err != nil {
		s.logger.Warn("cpusampler: skipping unparsable line", "line", lines[0], "error", err)
	} else {
		s.total.update(j)
	}

	for i, fields := range lines[1:] {
		j, err := parseJiffies(fields)
		if err != nil {
			s.logger.Warn("cpusampler: skipping unparsable line", "line", fields, "error", err)
			continue
		}
		s.perCore[i].update(j)
	}
	return nil
}

// jiffies holds the seven /proc/stat counters used for a usage delta.
type jiffies struct {
	user, userLow, sys, idle, ioWait, irq, softIrq uint64
}

func (j jiffies) total() uint64 {
	return j.user + j.userLow + j.sys + j.idle + j.ioWait + j.irq + j.softIrq
}

// update reports the first reading, and overflow (a counter going
// backwards, e.g. after a counter wrap), as a 0/0 reading rather than
// a percentage.
func (c *core) update(j jiffies) {
	total := j.total()
	if !c.primed || total < c.lastTotal || j.idle < c.lastIdle {
		c.primed = true
		_ = c.usage.SetValue(0.0)
		_ = c.idle.SetValue(0.0)
		c.lastTotal = total
		c.lastIdle = j.idle
		return
	}

	delta := float64(total - c.lastTotal)
	idleDelta := float64(j.idle - c.lastIdle)
	c.lastTotal = total
	c.lastIdle = j.idle

	if delta == 0 {
		return
	}
	used := delta - idleDelta
	usagePercent := used * 100.0 / delta
	_ = c.usage.SetValue(usagePercent)
	_ = c.idle.SetValue(100.0 - usagePercent)
}

// cpuLines returns the whitespace-split fields of every line in path
// beginning with "cpu" (the per-core stat lines /proc/stat puts first,
// with the aggregate "cpu" line always first).
func cpuLines(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines [][]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu") {
			continue
		}
		lines = append(lines, strings.Fields(line))
	}
	return lines, scanner.Err()
}

func parseJiffies(fields []string) (jiffies, error) {
	if len(fields) < 8 {
		return jiffies{}, fmt.Errorf("expected at least 8 fields, got %d", len(fields))
	}
	vals := make([]uint64, 7)
	for i := 0; i < 7; i++ {
		v, err := strconv.ParseUint(fields[i+1], 10, 64)
		if err != nil {
			return jiffies{}, err
		}
		vals[i] = v
	}
	return jiffies{
		user:    vals[0],
		userLow: vals[1],
		sys:     vals[2],
		idle:    vals[3],
		ioWait:  vals[4],
		irq:     vals[5],
		softIrq: vals[6],
	}, nil
}
