package cli

import (
	"context"
	"fmt"
	"os"

	"phishvault/internal/cryptox"
)

// getSimpleText and getPassphrase are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in
// tests.
var getSimpleText = GetSimpleText
var getPassphrase = GetPassphrase

// Register prompts the user for an email and password and attempts to create
// a new account. On success it prints "Success!" and suggests logging in.
// The password byte slice is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassphrase(os.Stdout, "Enter password")
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	if err := a.api.Register(ctx, userName, string(password)); err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}

	fmt.Println("Success! Now log in.")
	return nil
}

// Login authenticates against the backend and points the encryption session
// at the new identity. Depending on the account's state the user is told to
// run either setup or unlock next.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassphrase(os.Stdout, "Enter password")
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	if err := a.api.Login(ctx, userName, string(password)); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}

	if err := a.session.SetIdentity(ctx, a.api.UserID()); err != nil {
		fmt.Println("Could not resolve encryption status:", err)
		return err
	}

	if a.session.Status().IsSetup {
		fmt.Println("Logged in. Run 'unlock' to open your encrypted history.")
	} else {
		fmt.Println("Logged in. Run 'setup' to enable encryption.")
	}
	return nil
}

// Logout wipes the session key, drops the bearer tokens, and returns to the
// logged-out state.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.SetIdentity(ctx, ""); err != nil {
		return err
	}
	a.api.Logout()
	fmt.Println("Logged out.")
	return nil
}
