package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zanicar/stegofs/png"
)

// newHideCmd implements spec §6's one-shot hide operation:
//
//	stego hide <image_path> <secret_file_path>   # writes ./stego_<basename(secret)>
//
// aliased "h", per the short-alias convention spec §6 names. There is no
// output argument: the destination is always "./stego_<basename(secret)>",
// a fixed naming convention spec §6 commits to (the teacher's C ancestor
// instead took an output-prefix argument and derived "<prefix>_stego.png";
// we follow spec §6 as the controlling document).
func newHideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "hide <image_path> <secret_file_path>",
		Aliases: []string{"h"},
		Short:   "Hide a secret file inside a cover image",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			imagePath, secretPath := args[0], args[1]
			out := "./stego_" + filepath.Base(secretPath)
			return png.New().HideFile(imagePath, secretPath, out)
		},
	}
	return cmd
}
