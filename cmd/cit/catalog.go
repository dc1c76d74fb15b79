package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/p300-cit/internal/catalog"
	"github.com/Veraticus/p300-cit/internal/cli"
	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/spf13/cobra"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the stimulus objects a protocol resolves to",
		Long: `Scan the stimulus directory and group images into objects and views.

Image files follow the naming convention probe_<object>_view<N>.jpg and
irr_<object>_view<N>.jpg. When the protocol declares objects, the files are
checked against the declarations.`,
		RunE: runCatalog,
	}

	cmd.Flags().StringP("protocol", "p", "", "protocol file (default: built-in protocol)")
	cmd.Flags().String("dir", "", "stimulus directory (overrides stimuli.directory)")

	return cmd
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	p, err := protocolFromFlags(cmd)
	if err != nil {
		return err
	}

	c, err := buildCatalog(p)
	if err != nil {
		return err
	}

	counts := c.RepetitionCounts(p.Trials)
	rows := make([][]string, 0, len(c.Objects()))
	for _, obj := range c.Objects() {
		rows = append(rows, []string{
			obj.Name,
			string(obj.Category),
			fmt.Sprintf("%d", len(obj.Views)),
			fmt.Sprintf("%d", counts[obj.Name]),
		})
	}

	fmt.Println(cli.FormatTitle("Stimulus Catalog"))                                           //nolint:forbidigo // User-facing output
	fmt.Println(cli.RenderTable([]string{"Object", "Category", "Views", "Trials"}, rows))      //nolint:forbidigo // User-facing output
	fmt.Println()                                                                              //nolint:forbidigo // User-facing output
	fmt.Println(cli.FormatInfo(fmt.Sprintf("%d trials per session", c.TotalTrials(p.Trials)))) //nolint:forbidigo // User-facing output
	return nil
}

// protocolFromFlags loads --protocol, or the built-in protocol, and applies
// the --dir override.
func protocolFromFlags(cmd *cobra.Command) (config.Protocol, error) {
	path, _ := cmd.Flags().GetString("protocol")

	p := config.DefaultProtocol()
	if path != "" {
		loaded, err := config.LoadProtocol(path)
		if err != nil {
			return config.Protocol{}, err
		}
		p = loaded
	}

	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		p.Stimuli.Directory = dir
	}
	return p, nil
}

// buildCatalog resolves the protocol against the stimulus directory. A
// missing directory is tolerated when the protocol declares its objects; a
// directory that could be read must hold files for every declared object.
func buildCatalog(p config.Protocol) (*catalog.Catalog, error) {
	if p.Stimuli.Directory != "" {
		paths, err := catalog.ListImages(config.ExpandPath(p.Stimuli.Directory), p.Stimuli.UseNormalized)
		switch {
		case err == nil:
			return catalog.BuildScanned(p, paths)
		case len(p.Objects) > 0:
			slog.Warn("Stimulus directory unavailable, using declared objects",
				"directory", p.Stimuli.Directory, "error", err)
		default:
			return nil, err
		}
	}
	return catalog.Build(p, nil)
}
