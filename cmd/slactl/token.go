package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/config"
	"github.com/spec-kit/sla-engine/internal/domain"
)

func newTokenCmd() *cobra.Command {
	var (
		agentID string
		ownerID string
		role    string
		ttl     int
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an agent",
		Long: `Signs an access token with AUTH_JWT_SECRET.

The token carries the agent id, the owning account and the role. Use
--role manager for webhook administration and agent creation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTLMinutes
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, ttl)
			return runToken(cmd.OutOrStdout(), tokens, agentID, ownerID, role)
		},
	}

	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (required)")
	cmd.Flags().StringVar(&ownerID, "owner", "", "owner account id (required)")
	cmd.Flags().StringVar(&role, "role", string(domain.AgentRoleAgent), "agent or manager")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "lifetime in minutes (defaults to AUTH_ACCESS_TOKEN_TTL_MINUTES)")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func runToken(out io.Writer, tokens *auth.TokenManager, agentID, ownerID, rawRole string) error {
	role, ok := domain.ParseAgentRole(rawRole)
	if !ok {
		return fmt.Errorf("token: unknown role %q", rawRole)
	}
	token, expiresAt, err := tokens.GenerateToken(agentID, ownerID, role)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	fmt.Fprintln(out, token)
	fmt.Fprintf(out, "expires: %s\n", expiresAt.UTC().Format(time.RFC3339))
	return nil
}
