package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/lumino/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show <correlation-id>",
	Short: "Print a stored application and every email sent for it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		path := viper.GetString("store.path")
		if cmd.Flags().Changed("store") {
			path, _ = cmd.Flags().GetString("store")
		}
		if err := show(cmd.Context(), cmd.OutOrStdout(), path, format, args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	addShowFlags(showCmd)
}

func addShowFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "o", formatJSON, "output format: json or yaml")
	cmd.Flags().String("store", "", "sqlite database with results (overrides store.path)")
}

type storedApplication struct {
	Application *store.Application `json:"application" yaml:"application"`
	Emails      []store.Email      `json:"emails" yaml:"emails"`
}

func show(ctx context.Context, w io.Writer, path, format, correlationID string) error {
	if format != formatJSON && format != formatYAML {
		return fmt.Errorf("unsupported output format %q", format)
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("no store configured (set store.path or --store)")
	}
	// Open creates missing databases; reading one that was never written is a mistake.
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening the store: %w", err)
	}

	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	app, err := db.Get(ctx, correlationID)
	if err != nil {
		return err
	}
	emails, err := db.Emails(ctx, correlationID)
	if err != nil {
		return err
	}
	if emails == nil {
		emails = []store.Email{}
	}

	return encode(w, format, storedApplication{Application: app, Emails: emails})
}
