package assay

import "net"

// Network helpers for tests that need a bound address guaranteed not to
// conflict with any other test: the OS picks the port.

// TCPListenerV4 returns a TCP listener bound to an ephemeral IPv4 port.
func TCPListenerV4() (*net.TCPListener, error) {
	return listenTCP("tcp4", "0.0.0.0:0")
}

// TCPListenerV6 returns a TCP listener bound to an ephemeral IPv6 port.
func TCPListenerV6() (*net.TCPListener, error) {
	return listenTCP("tcp6", "[::]:0")
}

// UDPConnV4 returns a UDP socket bound to an ephemeral IPv4 port.
func UDPConnV4() (*net.UDPConn, error) {
	return listenUDP("udp4", "0.0.0.0:0")
}

// UDPConnV6 returns a UDP socket bound to an ephemeral IPv6 port.
func UDPConnV6() (*net.UDPConn, error) {
	return listenUDP("udp6", "[::]:0")
}

func listenTCP(network, addr string) (*net.TCPListener, error) {
	tcpAddr, err := net.ResolveTCPAddr(network, addr)
	if err != nil {
		return nil, err
	}
	return net.ListenTCP(network, tcpAddr)
}

func listenUDP(network, addr string) (*net.UDPConn, error) {
	udpAddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, err
	}
	return net.ListenUDP(network, udpAddr)
}
