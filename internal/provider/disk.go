package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

const sysBlockPath = "/sys/block"

type diskProvider struct {
	base
	partitions func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	usage      func(ctx context.Context, path string) (*disk.UsageStat, error)
	sysBlock   string
}

func newDiskProvider(b base) *diskProvider {
	return &diskProvider{
		base:       b,
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
		sysBlock:   sysBlockPath,
	}
}

func (p *diskProvider) Refresh(ctx context.Context) (Output, error) {
	partitions, err := p.partitions(ctx, false)
	if err != nil {
		return nil, refreshFailed(err)
	}

	disks := make([]Disk, 0, len(partitions))
	for _, part := range partitions {
		usage, err := p.usage(ctx, part.Mountpoint)
		if err != nil {
			// Unreadable mounts (permissions, stale network shares) are skipped.
			continue
		}

		device := blockDevice(part.Device)
		disks = append(disks, Disk{
			Name:           optional(filepath.Base(part.Device)),
			FileSystem:     part.Fstype,
			MountPoint:     part.Mountpoint,
			TotalSpace:     newSizeMeasure(usage.Total),
			AvailableSpace: newSizeMeasure(usage.Free),
			IsRemovable:    p.readBlockAttr(device, "removable") == "1",
			DriveType:      p.driveType(device),
		})
	}

	return DiskOutput{Disks: disks}, nil
}

func (p *diskProvider) driveType(device string) string {
	switch p.readBlockAttr(device, "queue/rotational") {
	case "0":
		return "SSD"
	case "1":
		return "HDD"
	default:
		return "Unknown"
	}
}

func (p *diskProvider) readBlockAttr(device, attr string) string {
	if device == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(p.sysBlock, device, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// blockDevice maps a partition device path to its parent block device
// name: /dev/sda1 -> sda, /dev/nvme0n1p2 -> nvme0n1, /dev/mmcblk0p1 -> mmcblk0.
func blockDevice(devicePath string) string {
	if !strings.HasPrefix(devicePath, "/dev/") {
		return ""
	}
	name := filepath.Base(devicePath)

	if strings.HasPrefix(name, "nvme") || strings.HasPrefix(name, "mmcblk") {
		if i := strings.LastIndex(name, "p"); i > 0 && isDigits(name[i+1:]) {
			return name[:i]
		}
		return name
	}

	return strings.TrimRight(name, "0123456789")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
