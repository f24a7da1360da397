// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/case-intake/pkg/types"
)

// setDefaults registers every config key so AutomaticEnv can override
// keys that are absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("intake.case_files_folder", "cases")
	v.SetDefault("intake.case_file_types", ".pdf")
	v.SetDefault("intake.party_schema_file_path", "schema/party.xsd")
	v.SetDefault("intake.admin_email", "")
	v.SetDefault("intake.metadata_policy", string(types.MetadataReject))
	v.SetDefault("intake.extension_match", string(types.MatchExact))
	v.SetDefault("intake.staged", false)

	v.SetDefault("notify.transport", string(types.TransportLog))
	v.SetDefault("notify.host", "")
	v.SetDefault("notify.port", 587)
	v.SetDefault("notify.username", "")
	v.SetDefault("notify.password", "")
	v.SetDefault("notify.from", "")
	v.SetDefault("notify.tls", "mandatory")
	v.SetDefault("notify.timeout", 30*time.Second)
	v.SetDefault("notify.max_retries", 3)
	v.SetDefault("notify.retry_base_delay", 5*time.Second)

	v.SetDefault("ledger.path", "")

	v.SetDefault("watch.drop_folder", "drop")
	v.SetDefault("watch.debounce", 2*time.Second)
	v.SetDefault("watch.processed_folder", "")
	v.SetDefault("watch.failed_folder", "")
	v.SetDefault("watch.metrics_addr", "")
}

// intakeFlags maps command flags to config keys.
var intakeFlags = map[string]string{
	"case-files-folder": "intake.case_files_folder",
	"case-file-types":   "intake.case_file_types",
	"schema":            "intake.party_schema_file_path",
	"admin-email":       "intake.admin_email",
	"metadata-policy":   "intake.metadata_policy",
	"extension-match":   "intake.extension_match",
	"staged":            "intake.staged",
	"notify":            "notify.transport",
	"ledger":            "ledger.path",
}

// addIntakeFlags registers the flags shared by process and watch.
func addIntakeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("case-files-folder", "", "base folder for extracted case folders")
	f.String("case-file-types", "", "comma-separated extension whitelist, e.g. .pdf,.docx")
	f.String("schema", "", "path to the party.xml XSD")
	f.String("admin-email", "", "administrator address for status reports")
	f.String("metadata-policy", "", "duplicate party.xml handling: reject or first")
	f.String("extension-match", "", "whitelist comparison: exact or fold")
	f.Bool("staged", false, "extract into a staging folder and rename on success")
	f.String("notify", "", "notification transport: smtp or log")
	f.String("ledger", "", "path to the SQLite outcome ledger (empty disables)")
}

// bindFlags binds the command's flags to their config keys. Binding
// happens at run time because process and watch share keys.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}
	return nil
}

// loadConfig reads the merged configuration (defaults, file, env, flags)
// and fills secrets.
func loadConfig(cmd *cobra.Command, keys map[string]string) (types.Config, error) {
	var cfg types.Config
	if err := bindFlags(cmd, keys); err != nil {
		return cfg, err
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	loadedSecrets.ApplySMTP(&cfg.Notify)
	return cfg, nil
}
