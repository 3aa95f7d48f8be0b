package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"phishvault/internal/client/services"
	"phishvault/internal/cryptox"
)

// Setup initializes encryption for an account that has none: it asks for a
// new passphrase twice, derives the master key, and leaves the session
// unlocked. Both passphrase copies are wiped before returning.
func (a *App) Setup(ctx context.Context) error {
	passphrase, err := getPassphrase(os.Stdout, "Choose a passphrase")
	if err != nil {
		return err
	}
	defer cryptox.Wipe(passphrase)

	if len(passphrase) == 0 {
		fmt.Println("Passphrase must not be empty.")
		return nil
	}

	confirm, err := getPassphrase(os.Stdout, "Repeat the passphrase")
	if err != nil {
		return err
	}
	defer cryptox.Wipe(confirm)

	if !bytes.Equal(passphrase, confirm) {
		fmt.Println("Passphrases do not match.")
		return nil
	}

	if err := a.session.Setup(ctx, passphrase); err != nil {
		if errors.Is(err, services.ErrAlreadySetUp) {
			fmt.Println("Encryption is already set up; use 'unlock'.")
			return nil
		}
		fmt.Println("Setup failed:", err)
		return err
	}

	fmt.Println("Encryption is set up and unlocked. There is no passphrase recovery: if you lose it, your history is unreadable.")
	return nil
}

// Unlock asks for the passphrase and opens the encryption session,
// translating the session's error types into user-facing messages.
func (a *App) Unlock(ctx context.Context) error {
	passphrase, err := getPassphrase(os.Stdout, "Enter your passphrase")
	if err != nil {
		return err
	}
	defer cryptox.Wipe(passphrase)

	err = a.session.Unlock(ctx, passphrase)
	if err == nil {
		fmt.Println("Unlocked.")
		return nil
	}

	var invalid *services.InvalidPassphraseError
	var locked *services.LockedOutError
	switch {
	case errors.As(err, &invalid):
		fmt.Printf("Wrong passphrase. %d attempts remaining.\n", invalid.AttemptsRemaining)
	case errors.As(err, &locked):
		fmt.Printf("Too many failed attempts. Try again in %d seconds.\n", locked.RemainingSeconds)
	case errors.Is(err, services.ErrCannotVerify):
		fmt.Println("Nothing to verify your passphrase against yet. Add an analysis on a device that is already unlocked, then retry here.")
	case errors.Is(err, services.ErrNotSetUp):
		fmt.Println("Encryption is not set up; use 'setup'.")
	default:
		fmt.Println("Unlock failed:", err)
	}
	return err
}

// Lock wipes the in-memory key; unlocking again requires the passphrase.
func (a *App) Lock(ctx context.Context) error {
	if err := a.session.Lock(ctx); err != nil {
		if errors.Is(err, services.ErrNotUnlocked) {
			fmt.Println("Session is not unlocked.")
			return nil
		}
		return err
	}
	fmt.Println("Locked.")
	return nil
}

// Status prints the session state.
func (a *App) Status(ctx context.Context) error {
	st := a.session.Status()
	fmt.Printf("state: %s  set up: %t  unlocked: %t\n", st.State, st.IsSetup, st.IsUnlocked)
	return nil
}
