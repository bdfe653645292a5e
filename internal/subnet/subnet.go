// Package subnet allocates an unused /30 for a tunnel out of a fixed
// /28 parent range, by inspecting addresses already bound to local
// network interfaces (spec §4.1).
package subnet

import (
	"net"

	"github.com/vishvananda/netlink"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
)

// ParentCIDR is the fixed /28 parent range every tunnel's /30 is
// carved from.
const ParentCIDR = "10.50.0.0/28"

// Allocation is one /30 assigned to a tunnel: host[0] goes to the
// local peer, host[1] to the remote peer, per spec §4.1.
type Allocation struct {
	Network    *net.IPNet
	LocalAddr  net.IP
	RemoteAddr net.IP
}

// AddrLister enumerates the IPv4 addresses currently bound to local
// interfaces. The production implementation wraps netlink; tests
// substitute a fixed list.
type AddrLister func() ([]net.IP, error)

// NetlinkAddrLister lists every IPv4 address bound to any link on the
// host via vishvananda/netlink.
func NetlinkAddrLister() ([]net.IP, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, innisfreeerrors.Wrap(innisfreeerrors.Network, "list network interfaces", err)
	}

	var addrs []net.IP
	for _, link := range links {
		list, err := netlink.AddrList(link, netlink.FAMILY_V4)
		if err != nil {
			return nil, innisfreeerrors.Wrap(innisfreeerrors.Network, "list addresses on "+link.Attrs().Name, err)
		}
		for _, a := range list {
			addrs = append(addrs, a.IP)
		}
	}
	return addrs, nil
}

// Allocate returns the first /30 within ParentCIDR whose two usable
// addresses collide with no address returned by lister. Iteration is
// numerically ascending on network address, so repeated calls on an
// otherwise-idle host return the same subnet: the first allocation is
// always 10.50.0.0/30.
func Allocate(lister AddrLister) (Allocation, error) {
	bound, err := lister()
	if err != nil {
		return Allocation{}, err
	}

	boundSet := make(map[string]bool, len(bound))
	for _, ip := range bound {
		boundSet[ip.String()] = true
	}

	_, parent, err := net.ParseCIDR(ParentCIDR)
	if err != nil {
		return Allocation{}, innisfreeerrors.Wrap(innisfreeerrors.Config, "parse parent subnet", err)
	}

	for _, candidate := range thirtyTwoSubnets(parent) {
		host0, host1 := usableHosts(candidate)
		if boundSet[host0.String()] || boundSet[host1.String()] {
			continue
		}
		return Allocation{Network: candidate, LocalAddr: host0, RemoteAddr: host1}, nil
	}

	return Allocation{}, innisfreeerrors.New(innisfreeerrors.Network, "no free /30 subnet in "+ParentCIDR)
}

// thirtyTwoSubnets enumerates every /30 inside parent in ascending
// network-address order.
func thirtyTwoSubnets(parent *net.IPNet) []*net.IPNet {
	base := parent.IP.To4()
	parentOnes, parentBits := parent.Mask.Size()
	count := 1 << uint(30-parentOnes)

	subnets := make([]*net.IPNet, 0, count)
	for i := 0; i < count; i++ {
		ip := make(net.IP, 4)
		copy(ip, base)
		// Each /30 covers 4 addresses; advance by 4*i in the last octet
		// space implied by the /28 parent (fits in one byte for any
		// parent this allocator is configured with).
		offset := uint32(i) * 4
		ipVal := ipToUint32(ip) + offset
		subnets = append(subnets, &net.IPNet{
			IP:   uint32ToIP(ipVal),
			Mask: net.CIDRMask(30, parentBits),
		})
	}
	return subnets
}

// usableHosts returns the two assignable addresses of a /30: network
// address + 1 and + 2 (the base and broadcast addresses of the /30 are
// skipped, per the RFC 3021-flavored semantics spec §4.1 references).
func usableHosts(n *net.IPNet) (net.IP, net.IP) {
	base := ipToUint32(n.IP.To4())
	return uint32ToIP(base + 1), uint32ToIP(base + 2)
}

func ipToUint32(ip net.IP) uint32 {
	ip = ip.To4()
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToIP(v uint32) net.IP {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
