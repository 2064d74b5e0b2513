package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"go-rehearse/midi"
	"go-rehearse/timeline"
)

func init() {
	rootCmd.AddCommand(hashCmd, assignmentsCmd, portsCmd)
}

var hashCmd = &cobra.Command{
	Use:   "hash file.mid...",
	Short: "Print the content hash of MIDI files",
	Long:  `Prints the hash hand assignments are stored under. Files with the same notes hash the same.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			seq, err := timeline.LoadFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", timeline.ContentHash(seq), path)
		}
		return nil
	},
}

var assignmentsCmd = &cobra.Command{
	Use:   "assignments file.mid",
	Short: "Show stored hand assignments for a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		seq, err := timeline.LoadFile(args[0])
		if err != nil {
			return err
		}
		hash := timeline.ContentHash(seq)
		tl := timeline.Build(seq)

		store, err := openStore(cfg, zap.NewNop())
		if err != nil {
			return err
		}
		rec, err := store.Read(hash)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "hash:  %s\nfile:  %s\nnotes: %d\n", hash, store.Path(hash), tl.Len())
		if rec == nil {
			fmt.Fprintln(out, "no stored assignments")
			return nil
		}
		applied := store.Load(hash, tl)
		fmt.Fprintf(out, "stored: %d  matched: %d\n", len(rec.Assignments), applied)

		var left, right int
		for _, iv := range tl.Intervals() {
			switch iv.Hand {
			case timeline.HandLeft:
				left++
			case timeline.HandRight:
				right++
			}
		}
		fmt.Fprintf(out, "left: %d  right: %d  unassigned: %d\n", left, right, tl.Len()-left-right)
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI input and output ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ins, outs, err := midi.Ports(midi.PortTimeout)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "inputs:")
		for i, p := range ins {
			fmt.Fprintf(out, "  %d: %s\n", i, p.String())
		}
		fmt.Fprintln(out, "outputs:")
		for i, p := range outs {
			fmt.Fprintf(out, "  %d: %s\n", i, p.String())
		}
		return nil
	},
}
