// Package serviceport parses and renders the ServicePort list that maps a
// tunnel's public ports to local destinations (spec §3, §8).
package serviceport

import (
	"fmt"
	"strconv"
	"strings"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
)

// Protocol is the transport a ServicePort forwards. Only TCP is ever
// proxied; UDP is accepted by the grammar but rejected at parse time per
// spec §9's resolution of that open question.
type Protocol string

const (
	TCP Protocol = "TCP"
	UDP Protocol = "UDP"
)

// ServicePort is a single public_port -> local_port mapping.
type ServicePort struct {
	PublicPort int
	LocalPort  int
	Protocol   Protocol
}

// String renders a ServicePort back into "P:L/PROTO" form.
func (p ServicePort) String() string {
	return fmt.Sprintf("%d:%d/%s", p.PublicPort, p.LocalPort, p.Protocol)
}

// ParseMany parses a comma-separated list of specs of shape "P", "P:L",
// "P/PROTO", or "P:L/PROTO". When L is absent, LocalPort defaults to
// PublicPort. It fails if any spec is malformed, any port is outside
// 1..65535, any protocol isn't TCP or UDP, any ServicePort declares UDP
// (rejected per spec §9), or two ServicePorts share a PublicPort.
func ParseMany(spec string) ([]ServicePort, error) {
	parts := strings.Split(spec, ",")
	ports := make([]ServicePort, 0, len(parts))
	seen := make(map[int]bool, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, innisfreeerrors.New(innisfreeerrors.Config, "empty service port spec")
		}

		sp, err := parseOne(part)
		if err != nil {
			return nil, err
		}

		if seen[sp.PublicPort] {
			return nil, innisfreeerrors.New(innisfreeerrors.Config,
				fmt.Sprintf("duplicate public port %d", sp.PublicPort))
		}
		seen[sp.PublicPort] = true
		ports = append(ports, sp)
	}

	return ports, nil
}

func parseOne(spec string) (ServicePort, error) {
	proto := TCP
	rest := spec

	if idx := strings.IndexByte(spec, '/'); idx >= 0 {
		rest = spec[:idx]
		protoStr := strings.ToUpper(strings.TrimSpace(spec[idx+1:]))
		switch Protocol(protoStr) {
		case TCP, UDP:
			proto = Protocol(protoStr)
		default:
			return ServicePort{}, innisfreeerrors.New(innisfreeerrors.Config,
				fmt.Sprintf("unknown protocol %q in %q", protoStr, spec))
		}
	}

	publicStr := rest
	localStr := rest
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		publicStr = rest[:idx]
		localStr = rest[idx+1:]
	}

	publicPort, err := parsePort(publicStr)
	if err != nil {
		return ServicePort{}, innisfreeerrors.Wrap(innisfreeerrors.Config,
			fmt.Sprintf("invalid public port in %q", spec), err)
	}

	localPort, err := parsePort(localStr)
	if err != nil {
		return ServicePort{}, innisfreeerrors.Wrap(innisfreeerrors.Config,
			fmt.Sprintf("invalid local port in %q", spec), err)
	}

	if proto == UDP {
		return ServicePort{}, innisfreeerrors.New(innisfreeerrors.Config,
			fmt.Sprintf("UDP service ports are not forwarded by the proxy engine: %q", spec))
	}

	return ServicePort{PublicPort: publicPort, LocalPort: localPort, Protocol: proto}, nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("out of range 1..65535: %d", n)
	}
	return n, nil
}

// Render joins a ServicePort list back into comma-separated spec form,
// suitable for round-tripping through ParseMany.
func Render(ports []ServicePort) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}
