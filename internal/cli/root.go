package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dwizi/bizops-assistant/internal/app"
	"github.com/dwizi/bizops-assistant/internal/config"
)

const version = "0.1.0"

func NewRoot(logger *slog.Logger) *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "bizops-assistant",
		Short:         "BizOps assistant runs CRM requests through a tool-calling model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the environment")

	open := func() (*app.Runtime, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		return app.New(cfg, logger)
	}

	root.AddCommand(newAskCommand(open))
	root.AddCommand(newMigrateCommand(open))
	root.AddCommand(newSeedCommand(open))
	root.AddCommand(newAuditCommand(open))
	root.AddCommand(newToolsCommand(open))
	root.AddCommand(newVersionCommand())

	return root
}

// runtimeOpener builds a runtime from the current flags.
type runtimeOpener func() (*app.Runtime, error)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version)
		},
	}
}
