package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zanicar/stegofs/stegofuse"
)

// newMountCmd implements spec §6's mount operation: stegofs mount {image}
// {mountpoint} [-- fuse-options...], aliased "m". Trailing arguments after
// "--" are forwarded verbatim to the FUSE mount options, per spec §6's
// requirement that the CLI "forwards unrecognized trailing options to the
// underlying user-space-filesystem framework".
func newMountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                "mount {image} {mountpoint} [-- fuse-options...]",
		Aliases:            []string{"m"},
		Short:              "Mount a stego image as a FUSE filesystem",
		Args:               cobra.MinimumNArgs(2),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, extraOpts := splitFuseArgs(args)
			if len(positional) < 2 {
				return fmt.Errorf("mount: requires an image path and a mountpoint")
			}
			return stegofuse.Mount(positional[0], positional[1], extraOpts)
		},
	}
	return cmd
}

// splitFuseArgs separates stegofs's own positional arguments from anything
// following a literal "--", which is passed through untouched.
func splitFuseArgs(args []string) (positional, extra []string) {
	for i, a := range args {
		if a == "--" {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}
