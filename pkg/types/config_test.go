// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func validIntake() IntakeConfig {
	return IntakeConfig{
		CaseFilesFolder:     "cases",
		CaseFileTypes:       ".pdf",
		PartySchemaFilePath: "schema/party.xsd",
		AdminEmail:          "admin@example.com",
	}
}

func TestIntakeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *IntakeConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(c *IntakeConfig) {}},
		{name: "explicit policies", mutate: func(c *IntakeConfig) {
			c.MetadataPolicy = MetadataFirst
			c.ExtensionMatch = MatchFold
		}},
		{name: "missing fields", mutate: func(c *IntakeConfig) {
			c.CaseFilesFolder = " "
			c.AdminEmail = ""
		}, wantErr: "case_files_folder, admin_email"},
		{name: "unknown policy", mutate: func(c *IntakeConfig) {
			c.MetadataPolicy = "last"
		}, wantErr: "metadata_policy"},
		{name: "unknown match", mutate: func(c *IntakeConfig) {
			c.ExtensionMatch = "regex"
		}, wantErr: "extension_match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validIntake()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateNotify(t *testing.T) {
	c := Config{Intake: validIntake()}
	assert.NoError(t, c.Validate())

	c.Notify.Transport = TransportSMTP
	assert.Error(t, c.Validate())

	c.Notify.Host = "smtp.example.com"
	assert.NoError(t, c.Validate())

	c.Notify.Transport = "fax"
	assert.Error(t, c.Validate())
}

func TestPasswordNotSerialized(t *testing.T) {
	c := Config{Intake: validIntake(), Notify: NotifyConfig{Host: "smtp.example.com", Password: "s3cret"}}
	data, err := yaml.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
}

func TestOutcomeConstructors(t *testing.T) {
	ok := Succeeded("1-a", []string{"doc.pdf"})
	assert.True(t, ok.Success)
	assert.Equal(t, "1-a", ok.DestinationFolder)
	assert.Empty(t, ok.ErrorMessage)

	bad := Failed("validation", "broken")
	assert.False(t, bad.Success)
	assert.Empty(t, bad.DestinationFolder)
	assert.Equal(t, "broken", bad.ErrorMessage)
	assert.Equal(t, "validation", bad.Kind)
}
