// Copyright 2018 Zanicar. All rights reserved.
// Utilizes a BSD-3 license. Refer to the included LICENSE file for details.

// Command stegofs is the CLI front end described in spec §6: a one-shot
// hide/extract pair over the png codec, and a mount subcommand that wires
// stegofuse into a live FUSE mount.
//
// spec §6 lists "Aliases: -h, -e, -m" for the three subcommands. Read
// literally that would be a dash-prefixed flag, but cobra's Aliases are
// bare alternate command words (invoked as "stegofs h", not "stegofs
// -h"), so each subcommand registers "h"/"e"/"m" as a cobra alias rather
// than a flag. This reading is unverified against any runnable example
// in the pack; it is the natural cobra idiom for a short subcommand
// alias, not a flag shorthand.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "stegofs",
		Short:         "Hide and mount files inside raster images via LSB steganography",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(verbose)
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newHideCmd(), newExtractCmd(), newMountCmd())
	return root
}

// configureLogging matches the teacher CLI's verbose toggle (stderr output
// gated behind -v), expressed through zerolog's console writer per the
// ambient logging stack.
func configureLogging(verbose bool) {
	level := zerolog.Disabled
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}
