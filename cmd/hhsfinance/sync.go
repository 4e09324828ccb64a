package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hhsfinance/internal/auth"
	"hhsfinance/internal/backup"
	"hhsfinance/internal/cli"
	"hhsfinance/internal/core"
	"hhsfinance/internal/services"
)

// backupPath resolves -out: empty means the working directory, a directory
// gets the dated default file name.
func backupPath(out string, doc core.BackupData) string {
	name := backup.FileName(doc.Metadata.Timestamp)
	if out == "" {
		return name
	}
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}

func writeBackup(app *cli.App, out string) (string, error) {
	doc := app.Reconciler.Export()
	path := backupPath(out, doc)
	if err := backup.WriteFile(path, doc); err != nil {
		return "", err
	}
	app.Logger.Info("Backup written", "path", path, "transactions", len(doc.AppState.Transactions))
	return path, nil
}

func runBackup(e *env, args []string) error {
	fs := e.flagSet("backup")
	out := fs.String("out", "", "Output file or directory (default: dated file in the current directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		path, err := writeBackup(app, *out)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, path)
		return nil
	})
}

func runRestore(e *env, args []string) error {
	fs := e.flagSet("restore")
	file := fs.String("file", "", "Backup file to restore")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" && fs.NArg() == 1 {
		*file = fs.Arg(0)
	}
	if err := requireFlag(fs, "file", *file); err != nil {
		return err
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read backup file: %w", err)
	}

	return e.withApp(func(app *cli.App) error {
		snap, err := app.Reconciler.Import(e.ctx, data)
		if err != nil {
			return fmt.Errorf("restore %s: %w", *file, err)
		}
		state := app.Reconciler.State()
		fmt.Fprintf(e.stdout, "Restored %s backup: %d transactions, %d categories, currency %s\n",
			snap.Format, len(state.Transactions), len(state.Categories), state.Currency)
		return nil
	})
}

func runPush(e *env, args []string) error {
	fs := e.flagSet("push")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return e.withApp(func(app *cli.App) error {
		if err := app.Reconciler.Push(e.ctx); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Pushed to %s\n", app.Reconciler.GatewayName())
		return nil
	})
}

func runPull(e *env, args []string) error {
	fs := e.flagSet("pull")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return e.withApp(func(app *cli.App) error {
		res, err := app.Reconciler.Pull(e.ctx)
		if err != nil {
			return err
		}
		if res == services.PullNotFound {
			fmt.Fprintf(e.stdout, "No snapshot stored on %s\n", app.Reconciler.GatewayName())
			return nil
		}
		fmt.Fprintf(e.stdout, "Pulled %d transactions from %s\n",
			len(app.Reconciler.State().Transactions), app.Reconciler.GatewayName())
		return nil
	})
}

// readSecret returns flagValue, or the first line of stdin when it is empty.
func readSecret(e *env, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	sc := bufio.NewScanner(e.stdin)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("read passphrase: %w", err)
		}
		return "", auth.ErrEmptyPassphrase
	}
	s := strings.TrimRight(sc.Text(), "\r")
	if s == "" {
		return "", auth.ErrEmptyPassphrase
	}
	return s, nil
}

func runLogin(e *env, args []string) error {
	fs := e.flagSet("login")
	pass := fs.String("passphrase", "", "Admin passphrase (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		verifier, err := auth.NewVerifier(app.Config.AdminPassphraseHash)
		if err != nil {
			return err
		}
		if !verifier.Configured() {
			return fmt.Errorf("%w: set ADMIN_PASSPHRASE_HASH (see hash-passphrase)", auth.ErrNotConfigured)
		}
		secret, err := readSecret(e, *pass)
		if err != nil {
			return err
		}
		if err := verifier.Verify(secret); err != nil {
			app.Logger.Warn("Login rejected", "error", err)
			return err
		}
		if err := app.Reconciler.Login(e.ctx); err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "Logged in (%s)\n", app.Reconciler.Mode())
		return nil
	})
}

func runLogout(e *env, args []string) error {
	fs := e.flagSet("logout")
	dir := fs.String("backup", "", "Write a backup into this file or directory before logging out")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return e.withApp(func(app *cli.App) error {
		if *dir != "" {
			path, err := writeBackup(app, *dir)
			if err != nil {
				return fmt.Errorf("backup before logout: %w", err)
			}
			fmt.Fprintf(e.stdout, "Backup written to %s\n", path)
		}
		if err := app.Reconciler.Logout(e.ctx); err != nil {
			return err
		}
		fmt.Fprintln(e.stdout, "Logged out")
		return nil
	})
}

func runHashPassphrase(e *env, args []string) error {
	fs := e.flagSet("hash-passphrase")
	pass := fs.String("passphrase", "", "Passphrase to hash (read from stdin when empty)")
	cost := fs.Int("cost", 0, "bcrypt cost (default 10)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	secret, err := readSecret(e, *pass)
	if err != nil {
		return err
	}
	hash, err := auth.Hash(secret, *cost)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, hash)
	return nil
}
