package wgrender

import "github.com/innisfree/innisfree/internal/wgmodel"

// StandardWriteFiles builds the two write_files entries spec §3 and §6
// require on every tunnel: the remote WireGuard INI at the path
// wg-quick is invoked against, and the nginx stream config.
func StandardWriteFiles(wireguardINI, nginxConf string) []wgmodel.CloudConfigFile {
	return []wgmodel.CloudConfigFile{
		{
			Path:        "/tmp/innisfree.conf",
			Content:     wireguardINI,
			Permissions: "0644",
			Owner:       "root:root",
		},
		{
			Path:        "/etc/nginx/conf.d/stream/innisfree.conf",
			Content:     nginxConf,
			Permissions: "0644",
			Owner:       "root:root",
		},
	}
}
