package wgrender

import (
	"strings"

	"gopkg.in/yaml.v3"

	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
	"github.com/innisfree/innisfree/internal/wgmodel"
)

const cloudConfigHeader = "#cloud-config\n"

// writeFile mirrors one cloud-init write_files entry. Field names
// (path, content, permissions, owner) match cloud-init's own schema so
// the document round-trips through any cloud-init consumer unchanged.
type writeFile struct {
	Path        string `yaml:"path"`
	Content     string `yaml:"content"`
	Permissions string `yaml:"permissions"`
	Owner       string `yaml:"owner,omitempty"`
}

type sshKeys struct {
	EcdsaPrivate   string `yaml:"ecdsa_private,omitempty"`
	EcdsaPublic    string `yaml:"ecdsa_certificate,omitempty"`
	Ed25519Private string `yaml:"ed25519_private"`
	Ed25519Public  string `yaml:"ed25519_public"`
}

type cloudUser struct {
	Name              string   `yaml:"name"`
	Sudo              string   `yaml:"sudo"`
	Shell             string   `yaml:"shell"`
	SSHAuthorizedKeys []string `yaml:"ssh_authorized_keys"`
}

type cloudDocument struct {
	Users          []cloudUser `yaml:"users"`
	PackageUpdate  bool        `yaml:"package_update"`
	PackageUpgrade bool        `yaml:"package_upgrade"`
	Packages       []string    `yaml:"packages"`
	SSHKeys        sshKeys     `yaml:"ssh_keys"`
	WriteFiles     []writeFile `yaml:"write_files"`
}

// RenderCloudInit serializes cfg into the cloud-init YAML document
// described in spec §3/§4.3/§6: a single "innisfree" user carrying the
// authorized keys, the server host key split into its stable
// ed25519_private/ed25519_public fields, and the wireguard INI plus
// nginx stream files appended to write_files. The result always begins
// with the literal line "#cloud-config\n".
func RenderCloudInit(cfg wgmodel.CloudConfig) (string, error) {
	doc := cloudDocument{
		Users: []cloudUser{{
			Name:              cfg.Username,
			Sudo:              "ALL=(ALL) NOPASSWD:ALL",
			Shell:             "/bin/bash",
			SSHAuthorizedKeys: cfg.AuthorizedKeys,
		}},
		PackageUpdate:  true,
		PackageUpgrade: false,
		Packages:       []string{"nginx", "wireguard-tools"},
		SSHKeys: sshKeys{
			Ed25519Private: cfg.ServerHostPrivate,
			Ed25519Public:  cfg.ServerHostPublic,
		},
	}

	for _, f := range cfg.WriteFiles {
		doc.WriteFiles = append(doc.WriteFiles, writeFile{
			Path:        f.Path,
			Content:     f.Content,
			Permissions: f.Permissions,
			Owner:       f.Owner,
		})
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return "", innisfreeerrors.Wrap(innisfreeerrors.Template, "marshal cloud-init document", err)
	}

	// yaml.v3 never emits a "---\n" document start marker for a single
	// document, but guard the contract anyway: if a future encoder
	// change introduces one, strip it before prepending our own header.
	text := string(body)
	if strings.HasPrefix(text, "---\n") {
		text = text[len("---\n"):]
	}

	return cloudConfigHeader + text, nil
}
