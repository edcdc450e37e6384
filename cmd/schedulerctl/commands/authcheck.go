package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/benvon/agenda-scheduler/internal/auth"
	"github.com/benvon/agenda-scheduler/internal/config"
)

// NewAuthCheckCmd creates the auth-check command
func NewAuthCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth-check",
		Short: "Test the OIDC issuer configuration",
		Long:  "Test the configured OIDC issuer by reaching its discovery document and loading its signing keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.RequireAuth(); err != nil {
				return err
			}
			return checkIssuer(cmd.Context(), cmd.OutOrStdout(), cfg.OIDCIssuer, cfg.OIDCJWKSURL)
		},
	}

	return cmd
}

func checkIssuer(ctx context.Context, out io.Writer, issuer, jwksURL string) error {
	fmt.Fprintf(out, "Testing OIDC issuer: %s\n", issuer)

	discoveryURL := issuer + "/.well-known/openid-configuration"
	fmt.Fprintf(out, "\nTesting discovery endpoint: %s\n", discoveryURL)
	client := &http.Client{Timeout: 10 * time.Second}
	if err := checkEndpoint(ctx, client, discoveryURL); err != nil {
		return fmt.Errorf("discovery endpoint: %w", err)
	}
	fmt.Fprintln(out, "✓ Discovery endpoint is accessible")

	fmt.Fprintf(out, "\nLoading signing keys: %s\n", jwksURL)
	keys, err := auth.NewJWKSManager(time.Minute).GetJWKS(ctx, jwksURL)
	if err != nil {
		return fmt.Errorf("JWKS endpoint: %w", err)
	}
	if keys.Len() == 0 {
		return fmt.Errorf("JWKS endpoint returned no keys")
	}
	fmt.Fprintf(out, "✓ Loaded %d signing key(s)\n", keys.Len())

	fmt.Fprintln(out, "\n✓ OIDC configuration test passed")
	return nil
}

func checkEndpoint(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("returned status: %d", resp.StatusCode)
	}
	return nil
}
