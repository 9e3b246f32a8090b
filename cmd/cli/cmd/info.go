package cmd

import (
	"github.com/spf13/cobra"

	"github.com/storage-analysis/internal/service"
	"github.com/storage-analysis/internal/source"
	apperrors "github.com/storage-analysis/pkg/errors"
)

type infoOptions struct {
	snapshot  string
	source    string
	schema    string
	category  string
	estimator string
	workers   int
	jsonOut   string
	gzip      bool
	upload    bool
}

func newInfoCmd(root *rootOptions) *cobra.Command {
	opts := &infoOptions{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the storage size breakdown of a snapshot",
		Long: `Scan every record of a snapshot, classify it by pallet and storage item,
and print the raw and estimated compressed sizes as a tree. A JSON report
named <network>_storage.json is written alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.snapshot, "snapshot", "", "Snapshot file or badger directory")
	f.StringVar(&opts.source, "source", "", "Source type: snapshot, badger")
	f.StringVar(&opts.schema, "schema", "", "Schema file (YAML or JSON)")
	f.StringVar(&opts.category, "category", "", "Only print this pallet")
	f.StringVar(&opts.estimator, "estimator", "", "Compression estimator: deflate, gzip, zstd, s2, lz4, none")
	f.IntVar(&opts.workers, "workers", 0, "Number of aggregation workers")
	f.StringVar(&opts.jsonOut, "json-out", "", "Directory for the JSON report")
	f.BoolVar(&opts.gzip, "gzip", false, "Gzip the JSON report")
	f.BoolVar(&opts.upload, "upload", false, "Upload the JSON report to the configured storage")

	return cmd
}

func runInfo(cmd *cobra.Command, root *rootOptions, opts *infoOptions) error {
	cfg := root.config
	if opts.snapshot != "" {
		cfg.Source.Path = opts.snapshot
	}
	if opts.source != "" {
		cfg.Source.Type = opts.source
	}
	if opts.schema != "" {
		cfg.Schema.Path = opts.schema
	}
	if opts.estimator != "" {
		cfg.Analysis.Estimator = opts.estimator
	}
	if cmd.Flags().Changed("workers") {
		cfg.Analysis.Workers = opts.workers
	}
	if opts.jsonOut != "" {
		cfg.Output.JSONDir = opts.jsonOut
	}
	if opts.gzip {
		cfg.Output.Gzip = true
	}
	if opts.upload && !cfg.Storage.Enabled {
		cfg.Storage.Enabled = true
	}

	if cfg.Source.Path == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "--snapshot is required")
	}

	svc, err := root.newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	_, err = svc.Info(cmd.Context(), service.InfoRequest{
		Source: source.SourceConfig{},
		Focus:  opts.category,
		Upload: opts.upload,
	})
	return err
}
