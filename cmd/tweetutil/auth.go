package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"tweetutil/pkg/auth"
	"tweetutil/pkg/config"
	"tweetutil/pkg/twitter"
	"tweetutil/pkg/ui"
)

var (
	loginNoVerify bool
	logoutAll     bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Twitter API credentials",
	Long: `Manage stored Twitter API credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your keys or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store API keys securely",
	Long: `Store API keys for one account in the system keychain or an encrypted file.

You will be prompted for:
  - Account name (if not provided)
  - API key and API key secret
  - Access token and access token secret
  - Bearer token (optional, used for search)`,
	Example: `  # Interactive login
  tweetutil auth login

  # Store keys under a name
  tweetutil auth login work`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove stored credentials",
	Example: `  tweetutil auth logout work
  tweetutil auth logout --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with masked keys.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&loginNoVerify, "no-verify", false, "store the keys without checking them against the API")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "remove every stored account")
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowDeveloperPortalGuide(ui.Out)

	name := ""
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}
	if name == "" {
		if name, err = prompt(reader, "Account name [default]: "); err != nil {
			return err
		}
		if name == "" {
			name = "default"
		}
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		answer, _ := prompt(reader, fmt.Sprintf("Account '%s' already exists. Update keys? (y/N): ", name))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Fprintln(ui.Out, "\nEnter your keys (input is hidden):")
	account := &auth.Account{Name: name, LastModified: time.Now()}
	fields := []struct {
		label string
		dst   *string
	}{
		{"API key", &account.ConsumerKey},
		{"API key secret", &account.ConsumerSecret},
		{"Access token", &account.AccessToken},
		{"Access token secret", &account.AccessSecret},
		{"Bearer token (optional)", &account.BearerToken},
	}
	for _, f := range fields {
		fmt.Fprintf(ui.Out, "%s: ", f.label)
		if *f.dst, err = readSecret(reader); err != nil {
			return fmt.Errorf("failed to read %s: %w", strings.ToLower(f.label), err)
		}
	}

	if err := account.Validate(); err != nil {
		return err
	}

	if account.HasUserCredentials() && !loginNoVerify {
		fmt.Fprintln(ui.Out, "\nChecking keys...")
		user, err := verifyAccount(cmd.Context(), account)
		if err != nil {
			return fmt.Errorf("keys were rejected: %w", err)
		}
		account.Handle = user.ScreenName
		ui.PrintInfo("Authenticated as", "@"+user.ScreenName)
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	sanitized := auth.SanitizeAccount(account)
	ui.PrintSuccess("Credentials stored for account: " + name)
	fmt.Fprintf(ui.Out, "   API key: %s\n", sanitized.ConsumerKey)
	fmt.Fprintf(ui.Out, "   Access token: %s\n", sanitized.AccessToken)
	fmt.Fprintln(ui.Out, "\nTry it:")
	fmt.Fprintf(ui.Out, "   $ tweetutil post \"hello\" --dry-run --account %s\n", name)
	fmt.Fprintf(ui.Out, "   $ tweetutil search golang --count 20 --account %s\n", name)
	return nil
}

// verifyAccount checks user keys against verify_credentials
func verifyAccount(ctx context.Context, account *auth.Account) (*twitter.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.DefaultConfig()
	applyAccount(cfg, account)

	client, err := userClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client.VerifyCredentials(ctx)
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var names []string
	switch {
	case logoutAll:
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if a.Name != auth.EnvironmentAccountName {
				names = append(names, a.Name)
			}
		}
	case len(args) == 1:
		names = []string{args[0]}
	default:
		return errors.New("give an account name or --all")
	}

	if len(names) == 0 {
		ui.PrintWarning("No stored accounts found")
		return nil
	}
	for _, name := range names {
		if err := manager.Delete(name); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
		ui.PrintSuccess("Account removed: " + name)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'tweetutil auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(ui.Out)
	for i, account := range accounts {
		s := auth.SanitizeAccount(account)
		fmt.Fprintf(ui.Out, "%d. %s\n", i+1, s.Name)
		if s.Handle != "" {
			fmt.Fprintf(ui.Out, "   Handle: @%s\n", s.Handle)
		}
		fmt.Fprintf(ui.Out, "   API key: %s\n", s.ConsumerKey)
		fmt.Fprintf(ui.Out, "   Access token: %s\n", s.AccessToken)
		if s.BearerToken != "" {
			fmt.Fprintf(ui.Out, "   Bearer token: %s\n", s.BearerToken)
		}
		if !s.LastModified.IsZero() {
			fmt.Fprintf(ui.Out, "   Last modified: %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(ui.Out)
	}
	return nil
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Fprint(ui.Out, label)
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readSecret reads a line without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Out)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
