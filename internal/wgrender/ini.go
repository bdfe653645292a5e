// Package wgrender renders the WireGuard INI, cloud-init YAML, and nginx
// stream config documents from the typed model in internal/wgmodel
// (spec §4.3).
package wgrender

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/serviceport"
	"github.com/innisfree/innisfree/internal/wgmodel"
)

const plainTemplate = `[Interface]
Address = {{ .Interface.Address }}/32
PrivateKey = {{ .Interface.Keypair.PrivateKey }}
{{- if ne .Interface.ListenPort 0 }}
ListenPort = {{ .Interface.ListenPort }}
{{- end }}

[Peer]
PublicKey = {{ .Peer.Keypair.PublicKey }}
AllowedIPs = {{ .Peer.Address }}/32
{{- if ne .Peer.Endpoint "" }}
Endpoint = {{ .Peer.Endpoint }}:{{ $.ListenPort }}
{{- end }}
`

var plainTmpl = template.Must(template.New("wireguard-ini-plain").Parse(plainTemplate))

type plainData struct {
	wgmodel.WireguardDevice
	ListenPort int
}

// RenderPlain produces the unfiltered WireGuard INI for device: an
// [Interface] block for the local side and one [Peer] block for the
// remote side. Used for the remote peer's config embedded in
// cloud-init.
func RenderPlain(device wgmodel.WireguardDevice) (string, error) {
	data := plainData{WireguardDevice: device, ListenPort: wgmodel.DefaultListenPort}

	var buf bytes.Buffer
	if err := plainTmpl.Execute(&buf, data); err != nil {
		return "", innisfreeerrors.Wrap(innisfreeerrors.Template, "render wireguard ini", err)
	}
	return buf.String(), nil
}

// RenderFiltered produces the local on-disk WireGuard INI: the plain
// form plus PostUp/PreDown firewall rules restricted to ports.
func RenderFiltered(device wgmodel.WireguardDevice, ports []serviceport.ServicePort) (string, error) {
	plain, err := RenderPlain(device)
	if err != nil {
		return "", err
	}

	var rules strings.Builder
	for _, p := range ports {
		fmt.Fprintf(&rules, "PostUp = iptables -A FORWARD -i %%i -p tcp --dport %d -j ACCEPT\n", p.LocalPort)
		fmt.Fprintf(&rules, "PreDown = iptables -D FORWARD -i %%i -p tcp --dport %d -j ACCEPT\n", p.LocalPort)
	}
	if len(ports) == 0 {
		return plain, nil
	}

	lines := strings.SplitN(plain, "\n[Peer]", 2)
	if len(lines) != 2 {
		return plain + rules.String(), nil
	}
	return lines[0] + "\n" + strings.TrimRight(rules.String(), "\n") + "\n[Peer]" + lines[1], nil
}
