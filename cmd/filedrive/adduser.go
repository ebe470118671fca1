package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/jmalhotra/filedrive"
	"github.com/jmalhotra/filedrive/config"
	"github.com/jmalhotra/filedrive/database"
)

var addUserCmd = &cobra.Command{
	Use:   "add-user",
	Short: "Create a user account interactively",
	Long: `Create a user account directly in the configured database.

This is useful for bootstrapping the first account or provisioning
accounts without going through the HTTP registration endpoint.

You will be prompted for:
  - First and last name
  - Username
  - Password (entered twice)`,
	RunE: runAddUser,
}

func init() {
	rootCmd.AddCommand(addUserCmd)
}

func runAddUser(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repos, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	alphanumeric := func(input string) error {
		if !filedrive.IsAlphanumeric(input) {
			return errors.New("must contain only letters and numbers")
		}
		return nil
	}

	firstNamePrompt := promptui.Prompt{
		Label:    "First name",
		Validate: alphanumeric,
	}
	firstName, err := firstNamePrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	lastNamePrompt := promptui.Prompt{
		Label:    "Last name",
		Validate: alphanumeric,
	}
	lastName, err := lastNamePrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	usernamePrompt := promptui.Prompt{
		Label:    "Username",
		Validate: alphanumeric,
	}
	username, err := usernamePrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	passwordPrompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < 5 {
				return errors.New("must be at least 5 characters long")
			}
			return nil
		},
	}
	password, err := passwordPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	confirmPrompt := promptui.Prompt{
		Label: "Confirm password",
		Mask:  '*',
		Validate: func(input string) error {
			if input != password {
				return errors.New("passwords do not match")
			}
			return nil
		},
	}
	if _, err = confirmPrompt.Run(); err != nil {
		return handlePromptError(err)
	}

	users := filedrive.NewUserService(repos.Users)

	user, err := users.Register(ctx, filedrive.Registration{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Password:  password,
	})
	if err != nil {
		if errors.Is(err, filedrive.ErrConflict) {
			return fmt.Errorf("username %q is already taken", username)
		}
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
	return nil
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
