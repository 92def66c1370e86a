package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hf-eolus/sarwind-cli/internal/pipeline"
)

var (
	registerDest     string
	registerProfile  string
	registerRegion   string
	registerDatabase string
	registerTable    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register an already-published dataset as an Athena table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		set := cmd.Flags().Changed
		if set("dest") {
			cfg.Dest = registerDest
		}
		if set("profile") {
			cfg.AWS.Profile = registerProfile
		}
		if set("region") {
			cfg.AWS.Region = registerRegion
		}
		if set("database") {
			cfg.Athena.Database = registerDatabase
		}
		if set("table") {
			cfg.Athena.Table = registerTable
		}

		if err := cfg.Validate("register"); err != nil {
			return err
		}

		ac, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			Dest:     cfg.Dest,
			Database: cfg.Athena.Database,
			Table:    cfg.Athena.Table,
		}
		if err := pipeline.New(opts, nil, ac.registrar()).Register(ctx); err != nil {
			return eris.Wrap(err, "register")
		}

		zap.L().Info("table registered",
			zap.String("database", cfg.Athena.Database),
			zap.String("table", cfg.Athena.Table),
		)
		return nil
	},
}

func init() {
	f := registerCmd.Flags()
	f.StringVar(&registerDest, "dest", "", "s3:// URI where the dataset was published (required)")
	f.StringVar(&registerProfile, "profile", "", "AWS shared config profile (required)")
	f.StringVar(&registerRegion, "region", "", "AWS region override")
	f.StringVar(&registerDatabase, "database", "", "Athena database name (required)")
	f.StringVar(&registerTable, "table", "", "Athena table name (required)")
	_ = registerCmd.MarkFlagRequired("dest")
	_ = registerCmd.MarkFlagRequired("profile")
	_ = registerCmd.MarkFlagRequired("database")
	_ = registerCmd.MarkFlagRequired("table")
	rootCmd.AddCommand(registerCmd)
}
