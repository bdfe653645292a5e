package wgrender

import (
	"bytes"
	"text/template"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/serviceport"
)

// nginxData lets the template reach both the per-port fields and the
// shared destination IP via the dollar-pipeline without HTML escaping
// (text/template never escapes, unlike html/template).
type nginxData struct {
	DestIP string
	Ports  []serviceport.ServicePort
}

var nginxTmpl = template.Must(template.New("nginx-stream").Parse(`stream {
{{- range .Ports }}
    server {
        listen {{ .PublicPort }};
        proxy_pass {{ $.DestIP }}:{{ .LocalPort }};
    }
{{- end }}
}
`))

// RenderNginxStream emits the nginx stream{} block forwarding each
// ServicePort's public_port to destIP:local_port. text/template is used
// rather than html/template so literal base64 '=' and '/' bytes pass
// through unescaped.
func RenderNginxStream(destIP string, ports []serviceport.ServicePort) (string, error) {
	var buf bytes.Buffer
	if err := nginxTmpl.Execute(&buf, nginxData{DestIP: destIP, Ports: ports}); err != nil {
		return "", innisfreeerrors.Wrap(innisfreeerrors.Template, "render nginx stream config", err)
	}
	return buf.String(), nil
}
