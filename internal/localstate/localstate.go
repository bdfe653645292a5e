// Package localstate manages the per-tunnel config directory under
// $HOME/.config/innisfree/<name>/ (spec §4.5).
package localstate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/innisfree/innisfree/internal/config"
	innisfreeerrors "github.com/innisfree/innisfree/internal/errors"
)

const lockTimeout = 30 * time.Second

// Dir is the handle to one tunnel's on-disk directory.
type Dir struct {
	path string
}

// Make creates name's directory (idempotent) and returns a Dir handle
// to its absolute path.
func Make(name string) (Dir, error) {
	base, err := config.StateRoot()
	if err != nil {
		return Dir{}, err
	}

	path := filepath.Join(base, name)
	if err := os.MkdirAll(path, 0700); err != nil {
		return Dir{}, innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "create config directory", err)
	}
	return Dir{path: path}, nil
}

// Path returns the directory's absolute path.
func (d Dir) Path() string { return d.path }

// Clean recursively removes name's directory. Missing directories are
// not an error.
func Clean(name string) error {
	base, err := config.StateRoot()
	if err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(base, name)); err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "remove config directory", err)
	}
	return nil
}

// Names lists every tunnel name with a directory under the state root.
// A missing state root is not an error; it means no tunnel has ever
// been brought up.
func Names() ([]string, error) {
	base, err := config.StateRoot()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "list config directories", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// CleanAll removes every tunnel directory under the state root,
// continuing past individual failures and returning the first error
// encountered, if any — for recovering from a crash that left multiple
// orphaned local configs.
func CleanAll() error {
	names, err := Names()
	if err != nil {
		return err
	}

	var firstErr error
	for _, name := range names {
		if err := Clean(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// filenames for the five files spec §4.5 lists.
const (
	ClientPrivateKeyFile = "client_id_ed25519"
	ClientPublicKeyFile  = "client_id_ed25519.pub"
	ServerPrivateKeyFile = "server_id_ed25519"
	ServerPublicKeyFile  = "server_id_ed25519.pub"
	KnownHostsFile       = "known_hosts"
)

// ConfFile returns "<name>.conf", the local WireGuard filtered INI
// filename for this tunnel.
func ConfFile(name string) string { return name + ".conf" }

// WritePrivateKey atomically writes a private key file with owner
// read/write only permissions, per spec §3.
func (d Dir) WritePrivateKey(filename, content string) error {
	return d.writeAtomic(filename, content, 0600)
}

// WritePublicKey atomically writes a public key file world-readable,
// per spec §3.
func (d Dir) WritePublicKey(filename, content string) error {
	return d.writeAtomic(filename, content, 0644)
}

// WriteConfig atomically writes a generic file (the local WireGuard
// INI, known_hosts) at 0600: only the controller and the owning user
// need to read it.
func (d Dir) WriteConfig(filename, content string) error {
	return d.writeAtomic(filename, content, 0600)
}

// writeAtomic writes content via a temp file in the same directory
// followed by rename, so a crash never leaves a half-written file
// behind.
func (d Dir) writeAtomic(filename, content string, perm os.FileMode) error {
	path := filepath.Join(d.path, filename)

	tmp, err := os.CreateTemp(d.path, "."+filename+"-*.tmp")
	if err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "create temp file for "+filename, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "write "+filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "close "+filename, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "chmod "+filename, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "rename "+filename, err)
	}
	return nil
}

// WithLock runs fn while holding an exclusive file lock scoped to this
// directory, preventing two `innisfree up` invocations for the same
// name from racing on these files.
func (d Dir) WithLock(fn func() error) error {
	fileLock := flock.New(filepath.Join(d.path, ".lock"))

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "acquire state lock", err)
	}
	if !locked {
		return innisfreeerrors.New(innisfreeerrors.LocalIO, "state lock timeout")
	}
	defer fileLock.Unlock()

	return fn()
}

// FormatKnownHosts renders the known_hosts single-line format: "<ip>
// <server_public_ssh_key>".
func FormatKnownHosts(remoteIPv4, serverPublicKey string) string {
	return remoteIPv4 + " " + serverPublicKey + "\n"
}

// ParseKnownHosts recovers the remote IPv4 address from a known_hosts
// line, splitting on the first space as spec §4.5 requires.
func ParseKnownHosts(content string) (remoteIPv4, serverPublicKey string, err error) {
	line := strings.TrimRight(content, "\n")
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return "", "", innisfreeerrors.New(innisfreeerrors.LocalIO, "malformed known_hosts line")
	}
	return line[:idx], line[idx+1:], nil
}

// ReadKnownHosts reads and parses <name>'s known_hosts file.
func (d Dir) ReadKnownHosts() (remoteIPv4, serverPublicKey string, err error) {
	data, readErr := os.ReadFile(filepath.Join(d.path, KnownHostsFile))
	if readErr != nil {
		return "", "", innisfreeerrors.Wrap(innisfreeerrors.LocalIO, "read known_hosts", readErr)
	}
	return ParseKnownHosts(string(data))
}
