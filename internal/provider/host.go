package provider

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

type hostProvider struct {
	base
	info func(ctx context.Context) (*host.InfoStat, error)
}

func newHostProvider(b base) *hostProvider {
	return &hostProvider{base: b, info: host.InfoWithContext}
}

func (p *hostProvider) Refresh(ctx context.Context) (Output, error) {
	info, err := p.info(ctx)
	if err != nil {
		return nil, refreshFailed(err)
	}

	out := HostOutput{
		Hostname:  optional(info.Hostname),
		OSName:    optional(info.Platform),
		OSVersion: optional(info.PlatformVersion),
		BootTime:  int64(info.BootTime) * 1000,
		Uptime:    int64(info.Uptime) * 1000,
	}

	friendly := strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
	if info.OS != "" && info.OS != info.Platform {
		friendly = strings.TrimSpace(friendly + " (" + info.OS + ")")
	}
	out.FriendlyOSVersion = optional(friendly)

	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
