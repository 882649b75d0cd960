package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ByLCY/storystudio/asset"
	"github.com/ByLCY/storystudio/provider"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify provider credentials",
		Long: `Constructs the configured text and image clients. With --live it also
sends one short text request and one image request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			cfg := root.cfg

			text, closeText, err := newTextGenerator(ctx, cfg.Text)
			if err != nil {
				return fmt.Errorf("text provider %s: %w", cfg.Text.Provider, err)
			}
			defer closeText()
			report(w, "text provider", cfg.Text.Provider)

			images, err := newImageGenerator(cfg.Image)
			if err != nil {
				return fmt.Errorf("image provider: %w", err)
			}
			report(w, "image provider", "stability")

			if !live {
				return nil
			}

			story, err := text.Generate(ctx, provider.TextRequest{
				Prompt:      "Write a short story about a brave knight.",
				MaxTokens:   50,
				Temperature: 0.8,
			})
			if err != nil {
				return fmt.Errorf("text generation: %w", err)
			}
			report(w, "text generation", fmt.Sprintf("%d chars", len(story)))

			payload, err := images.Generate(ctx, provider.ImageRequest{Prompt: "A brave knight -- illustration", SceneNumber: 1})
			if err != nil {
				return fmt.Errorf("image generation: %w", err)
			}
			img := asset.Resolve(asset.Result{Payload: payload})
			if img == nil {
				return fmt.Errorf("image generation returned undecodable data")
			}
			report(w, "image generation", fmt.Sprintf("%s %dx%d", img.Format, img.Width, img.Height))
			return nil
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "Send real generation requests")

	return cmd
}

func report(w io.Writer, name, detail string) {
	fmt.Fprintf(w, "✓ %-18s %s\n", name, detail)
}
