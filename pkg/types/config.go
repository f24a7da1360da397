// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// MetadataPolicy decides what happens when an archive holds more than one
// party.xml entry.
type MetadataPolicy string

const (
	// MetadataReject fails the run with a MetadataAmbiguous error.
	MetadataReject MetadataPolicy = "reject"
	// MetadataFirst takes the first matching entry in archive order.
	MetadataFirst MetadataPolicy = "first"
)

// ExtensionMatch selects how archive entry extensions are compared with
// the whitelist.
type ExtensionMatch string

const (
	// MatchExact compares extensions byte for byte (".PDF" != ".pdf").
	MatchExact ExtensionMatch = "exact"
	// MatchFold compares extensions case-insensitively.
	MatchFold ExtensionMatch = "fold"
)

// IntakeConfig holds settings for one case intake pipeline.
type IntakeConfig struct {
	// CaseFilesFolder is the base directory new case folders are created in.
	CaseFilesFolder string `json:"case_files_folder" yaml:"case_files_folder" mapstructure:"case_files_folder"`

	// CaseFileTypes is the comma-separated extension whitelist, e.g. ".pdf,.docx".
	CaseFileTypes string `json:"case_file_types" yaml:"case_file_types" mapstructure:"case_file_types"`

	// PartySchemaFilePath is the XSD that party.xml is validated against.
	PartySchemaFilePath string `json:"party_schema_file_path" yaml:"party_schema_file_path" mapstructure:"party_schema_file_path"`

	// AdminEmail receives every status report and is also the sender.
	AdminEmail string `json:"admin_email" yaml:"admin_email" mapstructure:"admin_email"`

	// MetadataPolicy handles duplicate party.xml entries (default reject).
	MetadataPolicy MetadataPolicy `json:"metadata_policy" yaml:"metadata_policy" mapstructure:"metadata_policy"`

	// ExtensionMatch controls whitelist comparison (default exact).
	ExtensionMatch ExtensionMatch `json:"extension_match" yaml:"extension_match" mapstructure:"extension_match"`

	// Staged extracts into a hidden directory and renames it into place
	// only after every file was written.
	Staged bool `json:"staged" yaml:"staged" mapstructure:"staged"`
}

// Validate reports missing required settings and unknown policy values.
func (c IntakeConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.CaseFilesFolder) == "" {
		missing = append(missing, "case_files_folder")
	}
	if strings.TrimSpace(c.PartySchemaFilePath) == "" {
		missing = append(missing, "party_schema_file_path")
	}
	if strings.TrimSpace(c.AdminEmail) == "" {
		missing = append(missing, "admin_email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required intake settings: %s", strings.Join(missing, ", "))
	}
	switch c.MetadataPolicy {
	case "", MetadataReject, MetadataFirst:
	default:
		return fmt.Errorf("unknown metadata_policy %q (want %q or %q)", c.MetadataPolicy, MetadataReject, MetadataFirst)
	}
	switch c.ExtensionMatch {
	case "", MatchExact, MatchFold:
	default:
		return fmt.Errorf("unknown extension_match %q (want %q or %q)", c.ExtensionMatch, MatchExact, MatchFold)
	}
	return nil
}

// NotifyTransport selects how status reports are delivered.
type NotifyTransport string

const (
	TransportSMTP NotifyTransport = "smtp"
	TransportLog  NotifyTransport = "log"
)

// NotifyConfig holds settings for the administrator notification channel.
type NotifyConfig struct {
	// Transport is smtp or log (default log).
	Transport NotifyTransport `json:"transport" yaml:"transport" mapstructure:"transport"`

	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Username string `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	Password string `json:"-" yaml:"-" mapstructure:"password"`

	// From overrides the sender address; empty sends from the admin address.
	From string `json:"from,omitempty" yaml:"from,omitempty" mapstructure:"from"`

	// TLS is one of "mandatory", "opportunistic", or "none".
	TLS string `json:"tls" yaml:"tls" mapstructure:"tls"`

	// Timeout bounds a single SMTP dial-and-send.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is the number of resend attempts after a failed send (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
}

// LedgerConfig holds settings for the outcome ledger. An empty Path
// disables it.
type LedgerConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// WatchConfig holds settings for the drop-folder watcher.
type WatchConfig struct {
	// DropFolder is watched for incoming *.zip files.
	DropFolder string `json:"drop_folder" yaml:"drop_folder" mapstructure:"drop_folder"`

	// Debounce is how long a file must be quiet before it is processed.
	Debounce time.Duration `json:"debounce" yaml:"debounce" mapstructure:"debounce"`

	// ProcessedFolder and FailedFolder receive archives after a run.
	// Empty leaves the archive in place.
	ProcessedFolder string `json:"processed_folder" yaml:"processed_folder" mapstructure:"processed_folder"`
	FailedFolder    string `json:"failed_folder" yaml:"failed_folder" mapstructure:"failed_folder"`

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9090").
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr" mapstructure:"metrics_addr"`
}

// Config groups every section of case-intake.yaml.
type Config struct {
	Intake IntakeConfig `json:"intake" yaml:"intake" mapstructure:"intake"`
	Notify NotifyConfig `json:"notify" yaml:"notify" mapstructure:"notify"`
	Ledger LedgerConfig `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Watch  WatchConfig  `json:"watch" yaml:"watch" mapstructure:"watch"`
}

// Validate checks the intake settings and the notification transport.
func (c Config) Validate() error {
	if err := c.Intake.Validate(); err != nil {
		return err
	}
	switch c.Notify.Transport {
	case "", TransportLog:
	case TransportSMTP:
		if strings.TrimSpace(c.Notify.Host) == "" {
			return fmt.Errorf("notify.transport %q requires notify.host", TransportSMTP)
		}
	default:
		return fmt.Errorf("unknown notify.transport %q (want %q or %q)", c.Notify.Transport, TransportSMTP, TransportLog)
	}
	return nil
}
