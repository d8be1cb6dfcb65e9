package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/auth"
	"github.com/sagarc03/filevault/config"
	"github.com/sagarc03/filevault/database"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage programmatic API keys",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key for a user",
	Long: `Create an API key for the given user. The raw key is printed once
and cannot be recovered afterwards; only a hash is stored.`,
	RunE: runAPIKeyCreate,
}

var apikeyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's API keys",
	RunE:  runAPIKeyList,
}

var apikeyRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyRevoke,
}

var apikeyEmail string

func init() {
	apikeyCmd.PersistentFlags().StringVarP(&apikeyEmail, "email", "e", "", "email of the key owner (prompted if omitted)")

	apikeyCmd.AddCommand(apikeyCreateCmd)
	apikeyCmd.AddCommand(apikeyListCmd)
	apikeyCmd.AddCommand(apikeyRevokeCmd)
	rootCmd.AddCommand(apikeyCmd)
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	stores, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	user, err := resolveUser(cmd, stores)
	if err != nil {
		return err
	}

	namePrompt := promptui.Prompt{
		Label: "Key name",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("key name is required")
			}
			return nil
		},
	}
	name, err := namePrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	keySvc := auth.NewAPIKeyService(stores.APIKeys, slog.Default())
	created, err := keySvc.Create(ctx, user.ID, name)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Printf("Created key %q for %s\n\n", created.Key.Name, user.Email)
	fmt.Printf("  %s\n\n", created.RawKey)
	fmt.Println("Store this key now. It will not be shown again.")
	return nil
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	stores, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	user, err := resolveUser(cmd, stores)
	if err != nil {
		return err
	}

	keySvc := auth.NewAPIKeyService(stores.APIKeys, slog.Default())
	keys, pagination, err := keySvc.List(ctx, user.ID, 100, 1)
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Printf("No API keys for %s\n", user.Email)
		return nil
	}

	fmt.Printf("API keys for %s (%d total):\n", user.Email, pagination.TotalCount)
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
		}
		fmt.Printf("  %s  %-20s  %s  last used: %s\n", k.ID, k.Name, k.DisplayKey, lastUsed)
	}
	return nil
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	keyID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	ctx := cmd.Context()

	stores, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	user, err := resolveUser(cmd, stores)
	if err != nil {
		return err
	}

	confirm := promptui.Prompt{
		Label:     fmt.Sprintf("Revoke key %s", keyID),
		IsConfirm: true,
	}
	if _, promptErr := confirm.Run(); promptErr != nil {
		fmt.Println("Cancelled.")
		return nil //nolint:nilerr // User cancelled, not an error
	}

	keySvc := auth.NewAPIKeyService(stores.APIKeys, slog.Default())
	if err := keySvc.Delete(ctx, user.ID, keyID); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}

	fmt.Println("Revoked.")
	return nil
}

// resolveUser finds the key owner by the --email flag, prompting when the
// flag is empty.
func resolveUser(cmd *cobra.Command, stores database.Stores) (filevault.User, error) {
	email := apikeyEmail
	if email == "" {
		prompt := promptui.Prompt{
			Label: "User email",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("email is required")
				}
				return nil
			},
		}
		entered, err := prompt.Run()
		if err != nil {
			return filevault.User{}, handlePromptError(err)
		}
		email = entered
	}

	user, err := stores.Users.GetByEmail(cmd.Context(), email)
	if err != nil {
		return filevault.User{}, fmt.Errorf("look up user %s: %w", email, err)
	}
	return user, nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("Cancelled.")
		os.Exit(1)
	}
	return err
}
