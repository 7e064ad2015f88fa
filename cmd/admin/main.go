package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"groupboard/internal/auth"
	"groupboard/internal/config"
	"groupboard/internal/logging"
	"groupboard/internal/storage"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:           "groupboard-admin",
		Short:         "Operational tasks for groupboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			*cfg = loaded
			logging.Setup(cfg.LogLevel, "console", "groupboard-admin")
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file")

	cmd.AddCommand(newMigrateCommand(cfg))
	cmd.AddCommand(newGroupCommand(cfg))
	cmd.AddCommand(newTokenCommand(cfg))
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables and seed roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.InitDB(cfg.Database)
			if err != nil {
				return err
			}
			defer storage.Close(db)
			if err := storage.AutoMigrateTables(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func newGroupCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Inspect message groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <group-id>",
		Short: "Print a group and its members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groupID, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil || groupID == 0 {
				return fmt.Errorf("invalid group id %q", args[0])
			}
			db, err := storage.InitDB(cfg.Database)
			if err != nil {
				return err
			}
			defer storage.Close(db)

			ctx := commandContext(cmd)
			groups := storage.NewGormGroupRepository(db)
			group, err := groups.GetGroupByID(ctx, uint(groupID))
			if err != nil {
				return fmt.Errorf("group %d: %w", groupID, err)
			}
			members, err := groups.ListMembers(ctx, group.ID)
			if err != nil {
				return fmt.Errorf("members of group %d: %w", groupID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "group %d %q (deleted: %t, created %s)\n", group.ID, group.Name, group.IsDeleted, group.CreatedAt.Format("2006-01-02"))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "USER\tROLE\tNAME")
			for _, m := range members {
				fmt.Fprintf(tw, "%d\t%d\t%s\n", m.UserID, m.RoleID, m.DisplayName)
			}
			return tw.Flush()
		},
	})
	return cmd
}

func newTokenCommand(cfg *config.Config) *cobra.Command {
	var (
		userID uint
		oid    string
		name   string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken(userID, oid, name, cfg.Auth)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "Internal user id; omit for a user that is not registered yet")
	cmd.Flags().StringVar(&oid, "oid", "", "External identity (object id)")
	cmd.Flags().StringVar(&name, "name", "", "Display name claim")
	_ = cmd.MarkFlagRequired("oid")
	return cmd
}
