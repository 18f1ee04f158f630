// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-harvester/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup [destination]",
	Short: "Copy the papers database to a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(dbPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Backup(args[0]); err != nil {
			return err
		}
		fmt.Printf("Backed up to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
}
