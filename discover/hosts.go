package discover

import (
	"bytes"
	"net"
	"sort"

	"github.com/pablogventura/likebook-wifi-book-uploader/tool"
)

// maxHostsPerNetwork caps how many candidates one network contributes so a
// wide mask cannot turn the sweep into a full internet scan.
const maxHostsPerNetwork = 254

// generateNetworkIPs enumerates host addresses inside ipnet, skipping the
// network address itself. For /24 networks this yields .1 through .254.
func generateNetworkIPs(ipnet *net.IPNet) []string {
	var ips []string
	ip := ipnet.IP.To4()
	if ip == nil {
		return ips
	}

	mask := ipnet.Mask
	network := ip.Mask(mask)

	ones, bits := mask.Size()
	if bits != 32 {
		return ips
	}
	hostBits := 32 - ones

	maxHosts := maxHostsPerNetwork
	if hostBits < 8 {
		maxHosts = (1 << hostBits) - 2 // exclude network and broadcast
	}

	for i := 1; i <= maxHosts; i++ {
		candidate := make(net.IP, 4)
		copy(candidate, network)

		if hostBits <= 8 {
			candidate[3] = network[3] + byte(i)
		} else if hostBits <= 16 {
			candidate[3] = network[3] + byte(i&0xff)
			candidate[2] = network[2] + byte((i>>8)&0xff)
		} else {
			candidate[3] = network[3] + byte(i&0xff)
			candidate[2] = network[2] + byte((i>>8)&0xff)
			candidate[1] = network[1] + byte((i>>16)&0xff)
		}

		if candidate.Equal(network) {
			continue
		}
		ips = append(ips, candidate.String())
	}
	return ips
}

// candidateHosts collects every probe target on the local subnets, with the
// machine's own addresses removed, deduplicated, in ascending numeric order.
func candidateHosts(interfaceName string) ([]string, error) {
	nets, err := tool.LocalIPNets(interfaceName)
	if err != nil {
		return nil, err
	}

	selfIPs := tool.GetLocalIPv4Set()
	seen := make(map[string]struct{})
	var hosts []string
	for _, ipnet := range nets {
		for _, ip := range generateNetworkIPs(ipnet) {
			if _, isSelf := selfIPs[ip]; isSelf {
				continue
			}
			if _, dup := seen[ip]; dup {
				continue
			}
			seen[ip] = struct{}{}
			hosts = append(hosts, ip)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return bytes.Compare(net.ParseIP(hosts[i]).To4(), net.ParseIP(hosts[j]).To4()) < 0
	})
	return hosts, nil
}
