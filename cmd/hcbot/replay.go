package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hcbot/hackchat/capture"
)

var (
	replayChannel string
	replaySession string
)

var replayCmd = &cobra.Command{
	Use:   "replay <transcript>",
	Short: "Print a captured frame transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		return printTranscript(cmd.OutOrStdout(), f, replayFilter{channel: replayChannel, session: replaySession})
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayChannel, "channel", "", "Only show frames of this channel")
	replayCmd.Flags().StringVar(&replaySession, "session", "", "Only show frames of this session ID")
}

type replayFilter struct {
	channel string
	session string
}

func (f replayFilter) match(e capture.Entry) bool {
	return (f.channel == "" || e.Channel == f.channel) &&
		(f.session == "" || e.Session == f.session)
}

// printTranscript writes one line per entry: time, channel, direction and
// the raw frame.
func printTranscript(w io.Writer, r io.Reader, filter replayFilter) error {
	tr, err := capture.NewReader(r)
	if err != nil {
		return err
	}
	defer tr.Close()

	for {
		e, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}
		if !filter.match(e) {
			continue
		}
		arrow := color.GreenString("<<")
		if e.Dir == capture.DirOut {
			arrow = color.CyanString(">>")
		}
		fmt.Fprintf(w, "%s %s %s %s\n", e.Time.Format("15:04:05.000"), color.YellowString(e.Channel), arrow, e.Frame)
	}
}
