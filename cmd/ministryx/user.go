package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/ministryx/internal/database"
	"github.com/dukerupert/ministryx/internal/store"
)

const passwordEnv = "MINISTRYX_NEW_PASSWORD"

func userAddCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "useradd <username>",
		Short: "Create a login",
		Long:  "Create a login. The password comes from --password or " + passwordEnv + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if password == "" {
				password = os.Getenv(passwordEnv)
			}
			if username == "" || len(password) < 8 {
				return errors.New("a username and a password of at least 8 characters are required")
			}

			db, err := database.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			users := store.NewUserStore(db)
			existing, err := users.GetByUsername(username)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("user %q already exists", username)
			}

			u, err := users.Create(username, password)
			if err != nil {
				return err
			}
			logger.Info("user created", "user_id", u.ID, "username", u.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for the new user")
	return cmd
}
