package core

import (
	"bufio"
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// SystemStatus is the aggregate shown on GET /api/admin/status.
type SystemStatus struct {
	Store struct {
		Driver string `json:"driver"`
		OK     bool   `json:"ok"`
	} `json:"store"`
	Ledger struct {
		OK      bool  `json:"ok"`
		Tracked int64 `json:"tracked"`
	} `json:"ledger"`
	Accounts struct {
		Total int `json:"total"`
	} `json:"accounts"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus is best-effort: a failing backend is reported, not returned.
func CollectSystemStatus(ctx context.Context, b *Backends, startedAt time.Time) SystemStatus {
	var st SystemStatus

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if b != nil {
		st.Store.Driver = b.Driver
		st.Store.OK = b.Accounts.Ping(ctx) == nil
		if st.Store.OK {
			if _, total, err := b.Accounts.List(ctx, 1, 1); err == nil {
				st.Accounts.Total = total
			}
		}
		st.Ledger.OK = b.Ledger.Ping(ctx) == nil
		if counter, ok := b.Ledger.(LedgerCounter); ok && st.Ledger.OK {
			if n, err := counter.Tracked(ctx); err == nil {
				st.Ledger.Tracked = n
			}
		}
	}

	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}
	return st
}

const procMeminfo = "/proc/meminfo"

// readMemInfo reports host memory as used/total bytes, zero when unknown.
func readMemInfo() (used, total uint64) {
	f, err := os.Open(procMeminfo)
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	return parseMeminfo(f)
}

// parseMeminfo reads MemTotal and MemAvailable (kB) from meminfo content.
func parseMeminfo(r io.Reader) (used, total uint64) {
	fields := map[string]uint64{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok || (name != "MemTotal" && name != "MemAvailable") {
			continue
		}
		fields[name] = parseKiB(rest)
	}
	total = fields["MemTotal"] * 1024
	if avail := fields["MemAvailable"] * 1024; avail <= total {
		used = total - avail
	}
	return used, total
}

// parseKiB parses " 1234 kB" into 1234.
func parseKiB(v string) uint64 {
	parts := strings.Fields(v)
	if len(parts) == 0 {
		return 0
	}
	n, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
