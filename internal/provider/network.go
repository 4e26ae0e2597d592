package provider

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"net"
	"os"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// counterSample is the traffic baseline of one interface.
type counterSample struct {
	iface string
	at    time.Time
	sent  uint64
	recv  uint64
}

type networkProvider struct {
	base
	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
	counters   func(ctx context.Context, perNIC bool) ([]psnet.IOCountersStat, error)
	routePath  string
	now        func() time.Time
	previous   *counterSample
}

func newNetworkProvider(b base, routePath string, now func() time.Time) *networkProvider {
	return &networkProvider{
		base:       b,
		interfaces: psnet.InterfacesWithContext,
		counters:   psnet.IOCountersWithContext,
		routePath:  routePath,
		now:        now,
	}
}

func (p *networkProvider) Refresh(ctx context.Context) (Output, error) {
	ifaces, err := p.interfaces(ctx)
	if err != nil {
		return nil, refreshFailed(err)
	}

	counters, err := p.counters(ctx, true)
	if err != nil {
		return nil, refreshFailed(err)
	}
	byName := make(map[string]psnet.IOCountersStat, len(counters))
	for _, c := range counters {
		byName[c.Name] = c
	}

	out := NetworkOutput{Interfaces: make([]NetworkInterface, 0, len(ifaces))}
	for _, iface := range ifaces {
		if isLoopback(iface) {
			continue
		}
		out.Interfaces = append(out.Interfaces, toNetworkInterface(iface, byName[iface.Name]))
	}

	gateway, ok := readDefaultRoute(p.routePath)
	if !ok {
		p.previous = nil
		return out, nil
	}
	out.DefaultGateway = &gateway

	for i := range out.Interfaces {
		if out.Interfaces[i].Name == gateway.Interface {
			iface := out.Interfaces[i]
			out.DefaultInterface = &iface
			break
		}
	}

	if c, found := byName[gateway.Interface]; found {
		out.Traffic = p.traffic(c)
	} else {
		p.previous = nil
	}

	return out, nil
}

// traffic converts counter deltas since the previous refresh into
// per-second rates. The first refresh, and the first after the default
// route moves to another interface, only records a baseline.
func (p *networkProvider) traffic(c psnet.IOCountersStat) *NetworkTraffic {
	current := counterSample{iface: c.Name, at: p.now(), sent: c.BytesSent, recv: c.BytesRecv}
	previous := p.previous
	p.previous = &current

	if previous == nil || previous.iface != current.iface {
		return nil
	}
	elapsed := current.at.Sub(previous.at).Seconds()
	if elapsed <= 0 || current.sent < previous.sent || current.recv < previous.recv {
		return nil
	}

	return &NetworkTraffic{
		Received:    newSizeMeasure(uint64(float64(current.recv-previous.recv) / elapsed)),
		Transmitted: newSizeMeasure(uint64(float64(current.sent-previous.sent) / elapsed)),
	}
}

func isLoopback(iface psnet.InterfaceStat) bool {
	for _, flag := range iface.Flags {
		if flag == "loopback" {
			return true
		}
	}
	return false
}

func toNetworkInterface(iface psnet.InterfaceStat, c psnet.IOCountersStat) NetworkInterface {
	out := NetworkInterface{
		Name:          iface.Name,
		MacAddress:    iface.HardwareAddr,
		IPv4Addresses: []string{},
		IPv6Addresses: []string{},
		Transmitted:   newSizeMeasure(c.BytesSent),
		Received:      newSizeMeasure(c.BytesRecv),
	}

	for _, addr := range iface.Addrs {
		ip, _, err := net.ParseCIDR(addr.Addr)
		if err != nil {
			ip = net.ParseIP(addr.Addr)
		}
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			out.IPv4Addresses = append(out.IPv4Addresses, ip.String())
		} else {
			out.IPv6Addresses = append(out.IPv6Addresses, ip.String())
		}
	}

	return out
}

// readDefaultRoute finds the default IPv4 route in a /proc/net/route table.
func readDefaultRoute(path string) (Gateway, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Gateway{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Scan() // header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}

		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		// The kernel prints the address in host byte order.
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, binary.LittleEndian.Uint32(raw))

		return Gateway{Interface: fields[0], Address: ip.String()}, true
	}

	return Gateway{}, false
}
