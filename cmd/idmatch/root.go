package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "idmatch",
		Short: "Verify that identity documents show the same person",
		Long: `idmatch compares the faces found in an applicant's primary identity
documents against the faces in their supporting documents. Documents may be
images, PDFs or spreadsheets with embedded pictures, read from a folder tree
or from a JSON manifest that can reference S3 objects.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional unless named explicitly
			if err := godotenv.Load(envFile); err != nil {
				if envFile == ".env" && errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with environment variables to load")

	root.AddCommand(newVerifyCmd(), newVersionCmd())
	return root
}
