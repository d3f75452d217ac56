package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/bagstore/internal/auth"
	"github.com/ariefcatur/bagstore/internal/config"
	"github.com/ariefcatur/bagstore/internal/redisx"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	sessionUser  string
	sessionEmail string
	sessionPhone string
	sessionToken string
	sessionTTL   time.Duration
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage bearer sessions for local development",
}

var sessionIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Write a bearer session to Redis and print its token",
	Long: `In production sessions come from the identity provider. This command writes
the same session record so the api can be exercised locally.`,
	RunE: runSessionIssue,
}

func init() {
	sessionCmd.AddCommand(sessionIssueCmd)
	rootCmd.AddCommand(sessionCmd)

	sessionIssueCmd.Flags().StringVar(&sessionUser, "user", "", "User id (required)")
	sessionIssueCmd.Flags().StringVar(&sessionEmail, "email", "", "Account email")
	sessionIssueCmd.Flags().StringVar(&sessionPhone, "phone", "", "Account phone")
	sessionIssueCmd.Flags().StringVar(&sessionToken, "token", "", "Token to use instead of a random one")
	sessionIssueCmd.Flags().DurationVar(&sessionTTL, "ttl", redisx.TTLSession, "Session lifetime")
}

func runSessionIssue(cmd *cobra.Command, args []string) error {
	if sessionUser == "" {
		return errors.New("--user is required")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	token := sessionToken
	if token == "" {
		token = uuid.NewString()
	}
	store := &redisx.SessionStore{Redis: rdb}
	sess := auth.Session{UserID: sessionUser, Email: sessionEmail, Phone: sessionPhone}
	if err := store.Issue(cmd.Context(), token, sess, sessionTTL); err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
