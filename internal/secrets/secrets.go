// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads SMTP relay credentials from key files, one value
// per file, so they stay out of the config file and the environment.
//
//	.secrets/smtp-username
//	.secrets/smtp-password
//
// Values are trimmed. Files other than the known keys are ignored.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/case-intake/internal/logger"
	"github.com/pdiddy/case-intake/pkg/types"
)

// Key file names.
const (
	SMTPUsername = "smtp-username"
	SMTPPassword = "smtp-password"
)

var knownKeys = []string{SMTPUsername, SMTPPassword}

// Set holds the credentials found on disk, keyed by file name.
type Set map[string]string

// Load reads the known key files in dir. A missing directory or key file
// contributes nothing. Unreadable key files are logged and skipped, as
// are key files that other users can read.
func Load(dir string) (Set, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path %s is not a directory", dir)
	}

	set := Set{}
	for _, key := range knownKeys {
		path := filepath.Join(dir, key)
		fi, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err == nil && !fi.Mode().IsRegular() {
			err = fmt.Errorf("not a regular file")
		}
		if err != nil {
			logger.Logger.Warnw("Could not read secret", "key", key, logger.FieldError, err)
			continue
		}
		if fi.Mode().Perm()&0o077 != 0 {
			logger.Logger.Warnw("Ignoring secret readable by other users; chmod 600 it",
				"key", key, logger.FieldPath, path)
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Logger.Warnw("Could not read secret", "key", key, logger.FieldError, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			set[key] = value
		}
	}
	return set, nil
}

// Keys returns the loaded key names, sorted. Values are never exposed
// for logging.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplySMTP fills the relay username and password from s. Values already
// set by config, environment, or flags win.
func (s Set) ApplySMTP(cfg *types.NotifyConfig) {
	if cfg.Username == "" {
		cfg.Username = s[SMTPUsername]
	}
	if cfg.Password == "" {
		cfg.Password = s[SMTPPassword]
	}
}
