package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/example/storehours/internal/config"
	"github.com/example/storehours/internal/domain/timing"
	"github.com/example/storehours/internal/hours"
)

// hours works offline: no database, just a seller file and the resolver
// settings from the environment.
func newHoursCmd() *cobra.Command {
	var file, location, at, sellerID string

	c := &cobra.Command{
		Use:   "hours",
		Short: "Resolve the operating window of a seller location from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ss, err := readSellers(file)
			if err != nil {
				return err
			}
			if len(ss) == 0 {
				return fmt.Errorf("no sellers in %s", file)
			}
			seller := ss[0]
			if sellerID != "" {
				found := false
				for _, s := range ss {
					if s.ID == sellerID {
						seller, found = s, true
						break
					}
				}
				if !found {
					return fmt.Errorf("seller %s not in %s", sellerID, file)
				}
			}

			svc := hours.Service{Resolver: timing.New(cfg.ResolverOptions()...)}
			when := svc.Resolver.Now()
			if at = strings.TrimSpace(at); at != "" {
				if when, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(svc.Evaluate(seller, location, when))
		},
	}

	c.Flags().StringVar(&file, "file", "", "path to seller JSON")
	c.Flags().StringVar(&location, "location", "", "location id")
	c.Flags().StringVar(&at, "at", "", "evaluation instant (RFC3339), defaults to now")
	c.Flags().StringVar(&sellerID, "seller", "", "seller id when the file holds several")
	_ = c.MarkFlagRequired("file")
	_ = c.MarkFlagRequired("location")
	return c
}
