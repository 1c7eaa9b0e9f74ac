package cmd

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/vibast-solutions/ms-go-blog-auth/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blog-auth",
	Short: "Blog authentication service",
	Long:  `Accounts, sessions and password recovery for the blog: an HTTP API plus admin, migration and mail worker commands.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the environment and applies the log settings before
// anything else logs.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err = configureLogging(cfg.Log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
