package tool

import "net"

// RejectUnsupportNetworkInterface reports whether iface is unusable for
// subnet scanning: down, loopback, tun/vpn, or without an IPv4 address.
func RejectUnsupportNetworkInterface(iface *net.Interface) bool {
	if iface.Flags&net.FlagUp == 0 {
		return true
	}
	if iface.Flags&net.FlagLoopback != 0 {
		return true
	}
	if iface.Flags&net.FlagPointToPoint != 0 {
		return true // utun / tun / vpn
	}
	ips, err := iface.Addrs()
	if err != nil {
		return true
	}
	for _, ip := range ips {
		if ipnet, ok := ip.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
			return false
		}
	}
	return true
}

// LocalIPNets returns the IPv4 networks of usable interfaces. When
// interfaceName is non-empty only that interface is considered.
func LocalIPNets(interfaceName string) ([]*net.IPNet, error) {
	var ifaces []net.Interface
	if interfaceName != "" {
		iface, err := net.InterfaceByName(interfaceName)
		if err != nil {
			return nil, err
		}
		ifaces = []net.Interface{*iface}
	} else {
		all, err := net.Interfaces()
		if err != nil {
			return nil, err
		}
		ifaces = all
	}

	var nets []*net.IPNet
	for i := range ifaces {
		iface := &ifaces[i]
		if RejectUnsupportNetworkInterface(iface) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.IsLoopback() || ipnet.IP.To4() == nil {
				continue
			}
			nets = append(nets, ipnet)
		}
	}
	return nets, nil
}

// GetLocalIPv4Set returns every IPv4 address assigned to this machine,
// used to exclude the local host from scan targets.
func GetLocalIPv4Set() map[string]struct{} {
	result := make(map[string]struct{})

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return result
	}
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipnet.IP
		if ip == nil || ip.IsLoopback() {
			continue
		}
		if ipv4 := ip.To4(); ipv4 != nil {
			result[ipv4.String()] = struct{}{}
		}
	}
	return result
}
