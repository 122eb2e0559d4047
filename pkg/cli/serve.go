package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/tasktree/pkg/auth"
	"github.com/harrisonrobin/tasktree/pkg/config"
	"github.com/harrisonrobin/tasktree/pkg/server"
	"github.com/harrisonrobin/tasktree/pkg/sheets"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the task REST API",
	Long: `Serve GET/POST/DELETE /api/tasks and PUT/DELETE /api/tasks/{id}.
Tasks are kept in the configured Google Sheet, or in memory with
backend=memory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
			cfg.Listen = addr
		}

		var backend server.Backend
		switch cfg.Backend {
		case config.BackendMemory:
			backend = server.NewMemoryBackend()
		default:
			if cfg.SpreadsheetID == "" {
				return fmt.Errorf("spreadsheet_id is not set; run 'tasktree config set spreadsheet_id <id>'")
			}
			b, err := sheets.NewClient(cmd.Context(), cfg.SpreadsheetID, cfg.SheetName)
			if err != nil {
				return fmt.Errorf("connecting to Google Sheets: %w", err)
			}
			backend = b
		}

		log.Printf("Serving tasks from %s backend on %s", cfg.Backend, cfg.Listen)
		return server.NewServer(backend).Run(cfg.Listen)
	},
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Google Sheets and Calendar",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := auth.Authenticate(cmd.Context()); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		log.Printf("Authentication successful! Token saved to %s", auth.TokenFile)
		return nil
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Address to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(authCmd)
}
