package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/ministryx/internal/backup"
	"github.com/dukerupert/ministryx/internal/database"
	"github.com/dukerupert/ministryx/internal/push"
	"github.com/dukerupert/ministryx/internal/store"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Encrypted database backups",
	}

	withManager := func(run func(cmd *cobra.Command, m *backup.Manager, records *store.BackupStore, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			records := store.NewBackupStore(db)
			return run(cmd, backup.NewManager(cfg.Backup.Manager(), db, records, logger), records, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Upload a backup now and prune expired ones",
			RunE: withManager(func(cmd *cobra.Command, m *backup.Manager, _ *store.BackupStore, _ []string) error {
				b, err := m.Run(cmd.Context())
				if err != nil {
					return err
				}
				if _, err := m.Cleanup(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "backup %d uploaded to %s (%d bytes)\n", b.ID, b.ObjectKey, b.SizeBytes)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "Show recent backups",
			RunE: withManager(func(cmd *cobra.Command, _ *backup.Manager, records *store.BackupStore, _ []string) error {
				list, err := records.List(50)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tBYTES\tKEY")
				for _, b := range list {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", b.ID, b.StartedAt.Format("2006-01-02 15:04"), b.Status, b.SizeBytes, b.ObjectKey)
				}
				return tw.Flush()
			}),
		},
		&cobra.Command{
			Use:   "restore <id> <path>",
			Short: "Download and decrypt a backup into a new database file",
			Args:  cobra.ExactArgs(2),
			RunE: withManager(func(cmd *cobra.Command, m *backup.Manager, _ *store.BackupStore, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid backup id %q", args[0])
				}
				if err := m.Restore(cmd.Context(), id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "restored backup %d to %s; stop the server and replace %s with it\n", id, args[1], cfg.DBPath)
				return nil
			}),
		},
	)
	return cmd
}

func vapidKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "Print a new key pair for calendar reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "MINISTRYX_PUSH_VAPID_PUBLIC_KEY=%s\nMINISTRYX_PUSH_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}
