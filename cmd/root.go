package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ByLCY/storystudio/config"
	"github.com/ByLCY/storystudio/pkg/logger"
)

// rootOptions 在子命令之间共享已加载的配置
type rootOptions struct {
	configPath string
	cfg        *config.Config
}

// NewRootCmd 创建 storystudio 根命令
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "storystudio",
		Short: "Generate illustrated stories and typeset them into PDF",
		Long: `StoryStudio turns a prompt into a short illustrated story.

The story text is split into scenes, every scene gets an illustration,
and the result is typeset one scene per page into a PDF document.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))

	return cmd
}
