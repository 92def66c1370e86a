package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hf-eolus/sarwind-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"ingest", "catalog", "register"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "sarwind", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestIngestCommand_Flags(t *testing.T) {
	for _, flagName := range []string{
		"dest", "profile", "region", "database", "table", "collection-id",
		"source-dir", "output-dir", "item-properties", "collection-properties",
		"aoi", "concurrency", "keep-output", "skip-upload", "skip-register",
	} {
		flag := ingestCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "ingest should have --%s flag", flagName)
	}
}

func TestIngestCommand_RequiredFlags(t *testing.T) {
	for _, flagName := range []string{"dest", "profile", "database", "table", "collection-id"} {
		flag := ingestCmd.Flags().Lookup(flagName)
		require.NotNil(t, flag)
		required := flag.Annotations[cobra.BashCompOneRequiredFlag]
		require.NotEmpty(t, required, "--%s should be required", flagName)
		assert.Equal(t, "true", required[0])
	}
}

func TestCatalogCommand_Flags(t *testing.T) {
	for _, flagName := range []string{
		"collection-id", "output-dir", "item-properties", "collection-properties",
	} {
		flag := catalogCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "catalog should have --%s flag", flagName)
	}
}

func TestRegisterCommand_Flags(t *testing.T) {
	for _, flagName := range []string{"dest", "profile", "region", "database", "table"} {
		flag := registerCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "register should have --%s flag", flagName)
	}
}

func TestApplyIngestFlags_OverridesConfig(t *testing.T) {
	orig := cfg
	t.Cleanup(func() { cfg = orig })

	cfg = &config.Config{}
	cfg.Dest = "s3://from-config"
	cfg.Dirs.Source = "configured-src"

	require.NoError(t, ingestCmd.Flags().Set("dest", "s3://from-flag"))
	t.Cleanup(func() {
		_ = ingestCmd.Flags().Set("dest", "")
	})

	applyIngestFlags(ingestCmd)

	assert.Equal(t, "s3://from-flag", cfg.Dest)
	// Unset flags do not clobber configured values.
	assert.Equal(t, "configured-src", cfg.Dirs.Source)
}
