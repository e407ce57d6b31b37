package util

import (
	"net"
	"strconv"
)

// FormatAddr returns "host:port", quoting IPv6 literals as needed.
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
