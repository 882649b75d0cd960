package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ByLCY/storystudio/layout"
	"github.com/ByLCY/storystudio/story"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	var in, out, debug string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Typeset a scenes manifest into PDF",
		Long: `Reads a manifest written by "generate --manifest" or returned by
POST /generate-story and typesets one scene per page. Scenes are
numbered by their position in the file.`,
		Example: `  storystudio export --in story.yaml --out story.pdf --debug layout.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("无法打开清单文件 %s: %w", in, err)
			}
			defer file.Close()

			m, err := story.ReadManifest(file, story.FormatFromPath(in))
			if err != nil {
				return err
			}

			exporter, err := newExporter(root.cfg)
			if err != nil {
				return err
			}
			doc, pdfBytes, err := exporter.Export(cmd.Context(), m.ToScenes(), layout.DocumentMeta{Subject: m.Prompt})
			if err != nil {
				return err
			}
			if err := writeDebug(doc, debug); err != nil {
				return err
			}
			if err := writeFile(out, pdfBytes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Manifest path (.json, .yaml)")
	cmd.Flags().StringVarP(&out, "out", "o", "story.pdf", "PDF output path")
	cmd.Flags().StringVar(&debug, "debug", "", "Layout debug JSON output path")
	_ = cmd.MarkFlagRequired("in")

	return cmd
}
