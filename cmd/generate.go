package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ByLCY/storystudio/pkg/logger"
	"github.com/ByLCY/storystudio/story"
)

type generateOptions struct {
	prompt      string
	genre       string
	tone        string
	audience    string
	maxTokens   int
	temperature float64
	scenes      int
	out         string
	manifest    string
	debug       string
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an illustrated story and write it as PDF",
		Example: `  storystudio generate --prompt "a lighthouse keeper's cat" --genre fable --scenes 4 --out story.pdf

  # Keep the scenes for a later export
  storystudio generate --prompt "space pirates" --manifest story.yaml --out story.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			req, err := story.NewGenerationRequest(opts.prompt,
				story.WithGenre(opts.genre),
				story.WithTone(opts.tone),
				story.WithAudience(opts.audience),
				story.WithMaxTokens(opts.maxTokens),
				story.WithTemperature(opts.temperature),
				story.WithNumScenes(opts.scenes),
			)
			if err != nil {
				return err
			}

			a, err := buildApp(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer a.close()

			st, err := a.service.Generate(ctx, req)
			if err != nil {
				return err
			}

			if opts.manifest != "" {
				var buf bytes.Buffer
				if err := story.WriteManifest(&buf, st.Manifest(), story.FormatFromPath(opts.manifest)); err != nil {
					return err
				}
				if err := writeFile(opts.manifest, buf.Bytes()); err != nil {
					return err
				}
			}

			doc, pdfBytes, err := a.exporter.Export(ctx, st.Scenes, st.Meta())
			if err != nil {
				return err
			}
			if err := writeDebug(doc, opts.debug); err != nil {
				return err
			}
			if err := writeFile(opts.out, pdfBytes); err != nil {
				return err
			}
			logger.Info(ctx, "story generated", "scenes", len(st.Scenes), "pages", len(doc.Pages), "out", opts.out)
			fmt.Fprintf(cmd.OutOrStdout(), "已生成 PDF：%s\n", opts.out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.prompt, "prompt", "", "Story prompt")
	f.StringVar(&opts.genre, "genre", story.DefaultGenre, "Story genre")
	f.StringVar(&opts.tone, "tone", story.DefaultTone, "Story tone")
	f.StringVar(&opts.audience, "audience", story.DefaultAudience, "Target audience")
	f.IntVar(&opts.maxTokens, "max-tokens", story.DefaultMaxTokens, "Maximum tokens for the story text")
	f.Float64Var(&opts.temperature, "temperature", story.DefaultTemperature, "Sampling temperature (0-2)")
	f.IntVar(&opts.scenes, "scenes", story.DefaultNumScenes, "Number of scenes")
	f.StringVarP(&opts.out, "out", "o", "story.pdf", "PDF output path")
	f.StringVar(&opts.manifest, "manifest", "", "Also write the scenes as a .yaml or .json manifest")
	f.StringVar(&opts.debug, "debug", "", "Layout debug JSON output path")
	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}
