package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	jwttoken "ledgerreg/internal/jwt_token"
	"ledgerreg/internal/registry/client"
	"ledgerreg/internal/registry/credential"
	"ledgerreg/internal/registry/models"
	"ledgerreg/internal/registry/schema"
	"ledgerreg/pkg/domain"
)

type rootOptions struct {
	server string
	token  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "registryctl",
		Short:         "Register and look up credentials and schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", envOr("REGISTRY_URL", "http://localhost:8080"), "Registry server base URL")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("REGISTRY_TOKEN"), "Bearer token for registrations")

	cmd.AddCommand(newTokenCmd(), newRegisterCmd(opts), newGetCmd(opts), newListCmd(opts))
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		account, signingKey, issuer, audience string
		roles                                 []string
		ttl                                   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Long: `Mint a bearer token for an account, signed with the server's key.

Examples:
  registryctl token --account 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed --role registrar
  export REGISTRY_TOKEN=$(registryctl token --account 0x... --role registrar)`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := domain.ParseAccount(account)
			if err != nil {
				return err
			}
			tok, err := jwttoken.NewJWTService(signingKey, issuer, audience).GenerateToken(acct, roles, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Signer account (0x-prefixed hex)")
	cmd.Flags().StringArrayVar(&roles, "role", nil, "Role to grant (repeatable)")
	cmd.Flags().StringVar(&signingKey, "signing-key", envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"), "HMAC signing key")
	cmd.Flags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "ledgerreg"), "Token issuer")
	cmd.Flags().StringVar(&audience, "audience", envOr("JWT_AUDIENCE", "ledgerreg-api"), "Token audience")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var (
		id, owner, hash, version string
		subject                  string
		properties               []string
	)
	cmd := &cobra.Command{
		Use:   "register <credential|schema>",
		Short: "Register a credential or schema",
		Long: `Register a record and print its id.

Credentials take an optional --subject. Schemas require --version and take
up to four --property name=description pairs.

Examples:
  registryctl register credential --id C1 --owner 0x... --hash 0x...
  registryctl register schema --id S1 --owner 0x... --hash 0x... --version 1.0 \
    --property given_name="Holder's given name"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			acct, err := domain.ParseAccount(owner)
			if err != nil {
				return err
			}
			digest, err := domain.ParseContentHash(hash)
			if err != nil {
				return err
			}

			req := client.RegisterRequest{ID: id, Owner: acct, ContentHash: digest}
			switch kind {
			case models.KindCredential:
				if cmd.Flags().Changed("subject") {
					req.Properties = []credential.Property{{Subject: subject}}
				}
			case models.KindSchema:
				req.Version = version
				if len(properties) > 0 {
					props, err := parseSchemaProperties(properties)
					if err != nil {
						return err
					}
					req.Properties = props
				}
			}

			got, err := client.New(opts.server, opts.token).Register(cmd.Context(), kind, req)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), got)
			return err
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Record id")
	cmd.Flags().StringVar(&owner, "owner", "", "Owner account (0x-prefixed hex)")
	cmd.Flags().StringVar(&hash, "hash", "", "Content hash (0x-prefixed, 32 bytes)")
	cmd.Flags().StringVar(&version, "version", "", "Schema version")
	cmd.Flags().StringVar(&subject, "subject", "", "Credential subject")
	cmd.Flags().StringArrayVar(&properties, "property", nil, "Schema property as name=description (repeatable)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	var ownerOnly bool
	cmd := &cobra.Command{
		Use:   "get <credential|schema> <id>",
		Short: "Print a registered record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			c := client.New(opts.server, opts.token)
			if ownerOnly {
				owner, err := c.OwnerOf(cmd.Context(), kind, args[1])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), owner)
				return err
			}
			raw, err := c.Get(cmd.Context(), kind, args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), raw)
		},
	}
	cmd.Flags().BoolVar(&ownerOnly, "owner", false, "Print only the owner account")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var owner, hash string
	cmd := &cobra.Command{
		Use:   "list <credential|schema>",
		Short: "List record ids by owner or by content hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			c := client.New(opts.server, opts.token)

			var ids []models.RecordID
			switch {
			case owner != "" && hash == "":
				acct, err := domain.ParseAccount(owner)
				if err != nil {
					return err
				}
				ids, err = c.ListByOwner(cmd.Context(), kind, acct)
				if err != nil {
					return err
				}
			case hash != "" && owner == "":
				digest, err := domain.ParseContentHash(hash)
				if err != nil {
					return err
				}
				ids, err = c.ListByHash(cmd.Context(), kind, digest)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("exactly one of --owner or --hash is required")
			}

			for _, id := range ids {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner account (0x-prefixed hex)")
	cmd.Flags().StringVar(&hash, "hash", "", "Content hash (0x-prefixed, 32 bytes)")
	return cmd
}

func parseKind(arg string) (models.Kind, error) {
	switch strings.TrimSuffix(strings.ToLower(arg), "s") {
	case string(models.KindCredential):
		return models.KindCredential, nil
	case string(models.KindSchema):
		return models.KindSchema, nil
	}
	return "", fmt.Errorf("unknown record kind %q (want credential or schema)", arg)
}

func parseSchemaProperties(raw []string) ([]schema.Property, error) {
	props := make([]schema.Property, 0, len(raw))
	for _, p := range raw {
		name, desc, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("property %q must be name=description", p)
		}
		props = append(props, schema.Property{Name: name, Description: desc})
	}
	return props, nil
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(raw)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
