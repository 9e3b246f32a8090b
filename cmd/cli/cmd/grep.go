package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/storage-analysis/internal/service"
	"github.com/storage-analysis/internal/sovereign"
	"github.com/storage-analysis/internal/subject"
	apperrors "github.com/storage-analysis/pkg/errors"
)

type grepOptions struct {
	snapshot string
	source   string
	schema   string
	ignore   string
}

func newGrepCmd(root *rootOptions) *cobra.Command {
	opts := &grepOptions{}

	cmd := &cobra.Command{
		Use:   "grep",
		Short: "Find records whose key or value contains an account",
		Long: `Scan every record of a snapshot and print each one whose key or value
contains the 32-byte account id of a subject, labelled with the pallet and
storage item the key belongs to.`,
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.snapshot, "snapshot", "", "Snapshot file or badger directory")
	f.StringVar(&opts.source, "source", "", "Source type: snapshot, badger")
	f.StringVar(&opts.schema, "schema", "", "Schema file (YAML or JSON)")
	f.StringVar(&opts.ignore, "ignore", "", "Skip matches in this pallet")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "address <ss58|0x...>...",
			Short: "Search for one or more accounts",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				subjects, err := subject.ParseAddresses(args)
				if err != nil {
					return err
				}
				return runGrep(cmd, root, opts, subjects)
			},
		},
		&cobra.Command{
			Use:   "para-account <id> <child|sibling>",
			Short: "Search for the sovereign account of a parachain",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				sub, err := parseParaAccount(args[0], args[1])
				if err != nil {
					return err
				}
				return runGrep(cmd, root, opts, []subject.Subject{sub})
			},
		},
	)

	return cmd
}

func parseParaAccount(id, location string) (subject.Subject, error) {
	n, err := strconv.ParseUint(id, 10, 16)
	if err != nil {
		return subject.Subject{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid parachain id "+strconv.Quote(id), err)
	}
	loc, err := sovereign.ParseLocation(location)
	if err != nil {
		return subject.Subject{}, err
	}
	return subject.NewDerived(loc, uint16(n)), nil
}

func runGrep(cmd *cobra.Command, root *rootOptions, opts *grepOptions, subjects []subject.Subject) error {
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
	if cfg.Source.Path == "" {
		return apperrors.New(apperrors.CodeInvalidInput, "--snapshot is required")
	}

	for _, s := range subjects {
		root.logger.Info("Searching for %s", s)
	}

	svc, err := root.newService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	_, err = svc.Grep(cmd.Context(), service.GrepRequest{
		Subjects: subjects,
		Ignore:   opts.ignore,
	})
	return err
}
