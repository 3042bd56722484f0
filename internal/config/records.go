package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/multierr"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"
)

// ErrUnknownVariant is returned for a record that is neither local_tools
// nor ssh.
var ErrUnknownVariant = errors.New("record must hold exactly one of local_tools or ssh")

// DefaultSSHPort is used when an ssh record leaves port unset.
const DefaultSSHPort = 22

// Record is one credential record. Exactly one of LocalTools and SSH is set.
type Record struct {
	// Source is the file the record was read from.
	Source     string      `yaml:"-"`
	LocalTools *LocalTools `yaml:"local_tools,omitempty"`
	SSH        *SSH        `yaml:"ssh,omitempty"`
}

// LocalTools points at helper binaries for each target platform.
type LocalTools struct {
	LinuxX8664Bin   string `yaml:"linux_x86_64_bin"`
	WindowsX8664Bin string `yaml:"windows_x86_64_bin"`
	MacOSX8664Bin   string `yaml:"macos_x86_64_bin"`
}

// SSH holds access credentials for one host.
type SSH struct {
	Hostname string `yaml:"hostname"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	KeyFile  string `yaml:"key_file"`
}

// Variant names the record kind: "local_tools" or "ssh".
func (r Record) Variant() string {
	switch {
	case r.LocalTools != nil:
		return "local_tools"
	case r.SSH != nil:
		return "ssh"
	default:
		return ""
	}
}

// Validate checks the record's referenced files and credentials.
func (r Record) Validate() error {
	switch {
	case r.LocalTools != nil && r.SSH == nil:
		return r.LocalTools.Validate()
	case r.SSH != nil && r.LocalTools == nil:
		return r.SSH.Validate()
	default:
		return ErrUnknownVariant
	}
}

// Validate reports every configured binary that does not exist.
func (l *LocalTools) Validate() error {
	var err error
	for _, bin := range []string{l.LinuxX8664Bin, l.WindowsX8664Bin, l.MacOSX8664Bin} {
		if bin == "" {
			err = multierr.Append(err, errors.New("local_tools: binary path is empty"))
			continue
		}
		if _, statErr := os.Stat(bin); statErr != nil {
			err = multierr.Append(err, fmt.Errorf("local_tools: %s does not exist", bin))
		}
	}
	return err
}

// Validate requires a hostname, a username, a port in range and either a
// password or a readable private key. An encrypted key is accepted; it is
// unlocked at use.
func (s *SSH) Validate() error {
	var err error
	if s.Hostname == "" {
		err = multierr.Append(err, errors.New("ssh: hostname is required"))
	}
	if s.Username == "" {
		err = multierr.Append(err, errors.New("ssh: username is required"))
	}
	if s.Port < 1 || s.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("ssh: port %d out of range", s.Port))
	}
	if s.KeyFile == "" && s.Password == "" {
		return multierr.Append(err, errors.New("ssh: either key_file or password must be set"))
	}
	if s.KeyFile != "" {
		err = multierr.Append(err, checkPrivateKey(s.KeyFile))
	}
	return err
}

func checkPrivateKey(path string) error {
	pem, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ssh: key_file %s does not exist: %w", path, err)
	}
	if _, err := ssh.ParsePrivateKey(pem); err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil
		}
		return fmt.Errorf("ssh: key_file %s: %w", path, err)
	}
	return nil
}

// ParseRecord decodes one YAML record. Unknown keys are rejected.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return Record{}, fmt.Errorf("parse record: %w", err)
	}
	if (r.LocalTools == nil) == (r.SSH == nil) {
		return Record{}, ErrUnknownVariant
	}
	if r.SSH != nil && r.SSH.Port == 0 {
		r.SSH.Port = DefaultSSHPort
	}
	return r, nil
}

// LoadRecords reads every regular file in dir as a record, in name order.
// Records that fail to parse or validate are left out; all failures are
// combined into the returned error next to the records that passed.
func LoadRecords(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config folder: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		records []Record
		errs    error
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		rec, err := ParseRecord(data)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		rec.Source = path
		if err := rec.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("from %s: %w", path, err))
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}
