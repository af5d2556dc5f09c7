package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dwizi/bizops-assistant/internal/audit"
)

func newMigrateCommand(open runtimeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := open()
			if err != nil {
				return err
			}
			defer runtime.Close()
			cmd.Println("schema up to date")
			return nil
		},
	}
}

func newSeedCommand(open runtimeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the configured administrator account if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := open()
			if err != nil {
				return err
			}
			defer runtime.Close()

			user, created, err := runtime.SeedAdmin(cmd.Context())
			if err != nil {
				return err
			}
			state := "exists"
			if created {
				state = "created"
			}
			cmd.Printf("admin %s (%s): %s\n", user.Email, user.ID, state)
			return nil
		},
	}
}

func newAuditCommand(open runtimeOpener) *cobra.Command {
	var filter audit.Filter

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded write tool attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := open()
			if err != nil {
				return err
			}
			defer runtime.Close()

			records, err := runtime.Audit().List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "CREATED\tUSER\tTOOL\tSUCCESS\tERROR")
			for _, record := range records {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%t\t%s\n",
					record.CreatedAt.Format("2006-01-02 15:04:05"),
					record.UserID,
					record.ToolName,
					record.Success,
					record.Error,
				)
			}
			return writer.Flush()
		},
	}
	cmd.Flags().StringVar(&filter.UserID, "user", "", "only records for this user id")
	cmd.Flags().StringVar(&filter.ToolName, "tool", "", "only records for this tool")
	cmd.Flags().BoolVar(&filter.FailedOnly, "failed", false, "only failed or denied attempts")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "maximum records to print")
	return cmd
}

func newToolsCommand(open runtimeOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Describe the tools the assistant can call and who may run them",
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := open()
			if err != nil {
				return err
			}
			defer runtime.Close()
			cmd.Print(runtime.Registry().DescribeAll())
			return nil
		},
	}
}
