package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newLoginCmd persists already-obtained credentials to the config file.
// Interactive login, two-factor confirmation, and token refresh are out of
// scope for this client (see package rest's doc comment) — callers
// are expected to obtain a UserID/Authorize/AccessToken some other way (the
// Cync mobile app's network traffic, an account-portal export, a separate
// auth tool) and feed them in here.
func newLoginCmd() *cobra.Command {
	var userID uint32
	var authorize, accessToken, refreshToken, base string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store account credentials for use by other commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			if authorize == "" || accessToken == "" || userID == 0 {
				return fmt.Errorf("--user-id, --authorize, and --access-token are all required")
			}

			c := &config{}
			_ = c.load(configFile) // ignore missing file; we're creating it

			c.data.UserID = userID
			c.data.Authorize = authorize
			c.data.AccessToken = accessToken
			if refreshToken != "" {
				c.data.RefreshToken = refreshToken
			}
			if base != "" {
				c.data.Base = base
			}

			if err := c.write(configFile); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Println("credentials saved")
			return nil
		},
	}

	cmd.Flags().Uint32Var(&userID, "user-id", 0, "cloud account user id")
	cmd.Flags().StringVar(&authorize, "authorize", "", "authorize token presented at login")
	cmd.Flags().StringVar(&accessToken, "access-token", "", "Access-Token header value for discovery REST calls")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "refresh token for a caller-supplied CredentialsSource to use")
	cmd.Flags().StringVar(&base, "base", "", "discovery REST API base URL (defaults to the production endpoint)")
	return cmd
}
