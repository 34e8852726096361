package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeusync/fxdemo/internal/core/events/bus"
	"github.com/zeusync/fxdemo/internal/injector"
)

func newChannelsCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List the channels the enabled systems subscribe to",
		Long: `Boots the enabled systems without running any frame, lists every channel
that has at least one subscriber, then shuts the systems down again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, cleanup, err := injector.InitializeApp(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := app.Context.Boot(); err != nil {
				return errors.Join(err, app.Context.Teardown())
			}
			channels := app.Context.Bus.Channels()
			if err := app.Context.Teardown(); err != nil {
				return err
			}
			return printChannels(cmd.OutOrStdout(), channels, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func printChannels(w io.Writer, channels []bus.ChannelInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(channels)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tSUBSCRIBERS")
	for _, ch := range channels {
		fmt.Fprintf(tw, "%s\t%d\n", ch.Name, ch.Subscribers)
	}
	return tw.Flush()
}
