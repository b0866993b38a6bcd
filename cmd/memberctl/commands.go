package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/membership-api/internal/app"
	"github.com/aanand-mishra/membership-api/internal/config"
	"github.com/aanand-mishra/membership-api/internal/idnumber"
	"github.com/aanand-mishra/membership-api/internal/iec"
	"github.com/aanand-mishra/membership-api/internal/storage/sqlstore"
	"github.com/aanand-mishra/membership-api/internal/upload"
)

// env is what the config-backed commands work with.
type env struct {
	cfg    *config.Config
	store  *sqlstore.Store
	mapper *iec.Mapper
	close  func()
}

func (o *rootOptions) open(cmd *cobra.Command) (*env, error) {
	if o.configPath == "" {
		return nil, errors.New("config path is not set: use --config or CONFIG_PATH")
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	store, err := app.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	cache, closeCache, err := app.NewCache(ctx, cfg.Redis)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &env{
		cfg:    cfg,
		store:  store,
		mapper: app.NewMapper(cfg, store, cache),
		close: func() {
			closeCache()
			store.Close()
		},
	}, nil
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var (
		verifyIEC  bool
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Import members from an .xlsx or .csv sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if !cmd.Flags().Changed("verify-iec") {
				verifyIEC = e.cfg.IEC.VerifyUploads
			}

			p := upload.NewProcessor(e.store, e.mapper, e.cfg.Upload)
			s, err := p.Run(cmd.Context(), filepath.Base(args[0]), f, upload.Options{VerifyIEC: verifyIEC})
			if err != nil {
				return err
			}

			printSummary(cmd.OutOrStdout(), s)

			if reportPath != "" {
				if err := upload.SaveReport(reportPath, s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", reportPath)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verifyIEC, "verify-iec", false, "check every accepted row against the voters roll")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the Excel report to this path")
	return cmd
}

func printSummary(w io.Writer, s *upload.Summary) {
	fmt.Fprintf(w, "%-10s %s\n", "file:", s.FileName)
	for _, line := range []struct {
		label string
		n     int
	}{
		{"total:", s.Total},
		{"created:", s.Created},
		{"updated:", s.Updated},
		{"rejected:", s.Rejected},
		{"warnings:", s.Warnings},
	} {
		fmt.Fprintf(w, "%-10s %d\n", line.label, line.n)
	}

	for _, r := range s.Results {
		if r.Status == upload.StatusRejected {
			fmt.Fprintf(w, "line %d: %s\n", r.Line, r.Reason)
		}
	}
}

func newValidateIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-id ID...",
		Short: "Check South African ID numbers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, id := range args {
				info, err := idnumber.Validate(id)
				if err != nil {
					invalid++
					fmt.Fprintf(out, "%s: invalid: %v\n", id, err)
					continue
				}
				fmt.Fprintf(out, "%s: valid, born %s, %s, %s\n",
					id, info.DateOfBirth.Format("2006-01-02"), info.Gender, info.Citizenship)
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d ID numbers invalid", invalid, len(args))
			}
			return nil
		},
	}
}

func newIECCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iec",
		Short: "Electoral Commission integration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Refresh the IEC identifiers of every province, municipality and ward",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			counts, err := e.mapper.Sync(cmd.Context())
			if err != nil {
				return err
			}

			kinds := make([]string, 0, len(counts))
			for t := range counts {
				kinds = append(kinds, t)
			}
			sort.Strings(kinds)
			for _, t := range kinds {
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %d mapped\n", t+":", counts[t])
			}
			return nil
		},
	})
	return cmd
}
