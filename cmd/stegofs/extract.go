package main

import (
	"github.com/spf13/cobra"

	"github.com/zanicar/stegofs/png"
)

// newExtractCmd implements spec §6's one-shot extract operation:
//
//	stego extract <stego_image_path> <output_prefix>   # writes <output_prefix>[.<ext>]
//
// aliased "e".
func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extract <stego_image_path> <output_prefix>",
		Aliases: []string{"e"},
		Short:   "Extract the hidden file from a stego image",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stegoPath, outPrefix := args[0], args[1]
			return png.New().ExtractFile(stegoPath, outPrefix)
		},
	}
	return cmd
}
