package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"neurosim/internal/codec"
	"neurosim/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newNetworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Inspect and drive an account's network",
		Long: `Operate directly on the network stored for an account, without a
running server. Every subcommand needs --user.`,
	}
	cmd.PersistentFlags().String("user", "", "Account whose network to use")

	cmd.AddCommand(
		newNetworkShowCmd(),
		newNetworkAddCmd(),
		newNetworkConnectCmd(),
		newNetworkStimulateCmd(),
		newNetworkAutoConnectCmd(),
		newNetworkClearCmd(),
		newNetworkExportCmd(),
		newNetworkImportCmd(),
	)
	return cmd
}

func newNetworkShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List neurons and connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			graph, err := a.svc.GetGraph(cmd.Context(), owner, false)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd, graph)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s neurons, %s connections\n",
				humanize.Comma(int64(len(graph.Nodes))), humanize.Comma(int64(len(graph.Edges))))

			outgoing := make(map[string]int, len(graph.Nodes))
			for _, e := range graph.Edges {
				outgoing[e.From]++
			}
			for _, n := range graph.Nodes {
				pos := "-"
				if n.Position != nil {
					pos = fmt.Sprintf("(%.1f, %.1f)", n.Position.X, n.Position.Y)
				}
				fmt.Fprintf(out, "  %s  threshold=%.3f  pos=%s  out=%d  %s\n",
					n.ID, n.Threshold, pos, outgoing[n.ID], n.Group)
			}
			return nil
		},
	}
}

func newNetworkAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a neuron",
		Long: `Add a neuron with a random threshold. Give both --x and --y to place it;
unplaced neurons are ignored by autoconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if cmd.Flags().Changed("x") != cmd.Flags().Changed("y") {
				return fmt.Errorf("--x and --y must be given together")
			}

			var pos *domain.Position
			if cmd.Flags().Changed("x") {
				x, _ := cmd.Flags().GetFloat64("x")
				y, _ := cmd.Flags().GetFloat64("y")
				pos = &domain.Position{X: x, Y: y}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			n, err := a.svc.AddNeuron(cmd.Context(), owner, pos)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd, n)
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.ID)
			return nil
		},
	}

	cmd.Flags().Float64("x", 0, "X coordinate")
	cmd.Flags().Float64("y", 0, "Y coordinate")
	return cmd
}

func newNetworkConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <from> <to>",
		Short: "Connect two neurons",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := a.svc.Connect(cmd.Context(), owner, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Connected %s -> %s\n", domain.ShortID(args[0]), domain.ShortID(args[1]))
			return nil
		},
	}
}

func newNetworkStimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stimulate [neuron-id]",
		Short: "Stimulate a neuron, or a random one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			var target string
			if len(args) == 1 {
				target = args[0]
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			result, err := a.svc.Stimulate(cmd.Context(), owner, target)
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stimulated %s: %d fired\n", result.StimulatedID, len(result.Fired))
			for _, id := range result.Fired {
				fmt.Fprintf(out, "  %s\n", id)
			}
			return nil
		},
	}
}

func newNetworkAutoConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoconnect",
		Short: "Connect nearby neurons at random",
		Long: `Connect every placed neuron to neighbours within --max-distance, each with
probability --probability scaled down linearly by distance, up to
--max-connections outgoing connections per neuron. Unset flags use the
configured defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides domain.AutoConnectOverrides
			if cmd.Flags().Changed("max-distance") {
				v, _ := cmd.Flags().GetFloat64("max-distance")
				overrides.MaxDistance = &v
			}
			if cmd.Flags().Changed("max-connections") {
				v, _ := cmd.Flags().GetInt("max-connections")
				overrides.MaxConnectionsPerNeuron = &v
			}
			if cmd.Flags().Changed("probability") {
				v, _ := cmd.Flags().GetFloat64("probability")
				overrides.BaseProbability = &v
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			created, err := a.svc.AutoConnect(cmd.Context(), owner, overrides)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s connections\n", humanize.Comma(int64(created)))
			return nil
		},
	}

	cmd.Flags().Float64("max-distance", 0, "Maximum distance between connected neurons")
	cmd.Flags().Int("max-connections", 0, "Maximum outgoing connections per neuron")
	cmd.Flags().Float64("probability", 0, "Connection probability at distance zero, in [0, 1]")
	return cmd
}

func newNetworkClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every neuron, connection and firing event",
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := a.svc.Clear(cmd.Context(), owner); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Network cleared")
			return nil
		},
	}

	cmd.Flags().Bool("yes", false, "Confirm deletion")
	return cmd
}

func newNetworkExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the network as JSON or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			c, err := codec.ForFormat(format)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return a.svc.Export(cmd.Context(), owner, c, w)
		},
	}

	cmd.Flags().String("format", "yaml", "Output format: json or yaml")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}

func newNetworkImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a JSON or YAML network into the account's network",
		Long: `Merge a network document. Neurons that already exist are kept unchanged.
The format defaults to the file extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(args[0]), ".")
			}
			c, err := codec.ForFormat(format)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			owner, err := a.ownerID(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			result, err := a.svc.Import(cmd.Context(), owner, c, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d neurons, %d connections\n",
				result.NeuronsCreated, result.ConnectionsCreated)
			return nil
		},
	}

	cmd.Flags().String("format", "", "Input format: json or yaml")
	return cmd
}
