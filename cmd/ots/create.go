package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/allisson/ots/internal/envelope"
	secretsDomain "github.com/allisson/ots/internal/secrets/domain"
	"github.com/allisson/ots/internal/secrets/http/dto"
)

type createOptions struct {
	text          string
	file          string
	password      string
	burnAfterRead bool
	maxReads      int
	expiresIn     string
	server        string
	noClipboard   bool
}

func newCreateCmd(a *app) *cobra.Command {
	opts := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new one-time secret",
		Long:  "Encrypt a secret locally and store the ciphertext. The decryption key only appears in the printed link.",
		Example: `  ots create --text "db password"
  cat id_rsa | ots create --password hunter2 --expires-in 1h
  ots create --file creds.txt --max-reads 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCreate(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.text, "text", "t", "", "Secret text (alternative to stdin or file)")
	flags.StringVarP(&opts.file, "file", "f", "", "Read the secret from a file instead of stdin")
	flags.StringVarP(&opts.password, "password", "p", "", "Password to protect the secret")
	flags.BoolVarP(&opts.burnAfterRead, "burn-after-read", "b", false, "Destroy the secret after the first read")
	flags.IntVarP(&opts.maxReads, "max-reads", "m", 0, "Number of reads before the secret is destroyed (default 1)")
	flags.StringVarP(&opts.expiresIn, "expires-in", "e", "7d", "Expiration time (e.g. 1h, 24h, 7d)")
	flags.StringVarP(&opts.server, "server", "s", "", "Override the server URL")
	flags.BoolVarP(&opts.noClipboard, "no-clipboard", "n", false, "Do not copy the link to the clipboard")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	cmd.MarkFlagsMutuallyExclusive("burn-after-read", "max-reads")

	return cmd
}

func (a *app) runCreate(cmd *cobra.Command, opts *createOptions) error {
	secret, err := a.readSecret(cmd.InOrStdin(), opts)
	if err != nil {
		return err
	}
	if strings.TrimSpace(secret) == "" {
		return errors.New("secret cannot be empty")
	}

	env, err := envelope.Encrypt(secret, opts.password)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}

	req := &dto.CreateSecretRequest{
		Ciphertext: env.Ciphertext,
		IV:         env.IV,
		Salt:       env.Salt,
		KDF:        envelope.KDFLabel,
		KDFParams: &secretsDomain.KDFParams{
			Iterations:          envelope.PBKDF2Iterations,
			IsPasswordProtected: opts.password != "",
		},
		BurnAfterRead: opts.burnAfterRead,
		MaxReads:      opts.maxReads,
		ExpiresIn:     opts.expiresIn,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid secret: %w", err)
	}

	c, err := a.newClient(opts.server, "")
	if err != nil {
		return err
	}

	resp, err := c.CreateSecret(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("create secret: %w", err)
	}

	link := envelope.FormatLink(c.BaseURL(), resp.ID, env.Key)
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(out, color.GreenString("✓")+" Secret created")
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Link:")
	_, _ = fmt.Fprintln(out, color.CyanString(link))
	if opts.password != "" {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, "Password:")
		_, _ = fmt.Fprintln(out, opts.password)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintf(out, "Reads left: %d\n", resp.RemainingReads)
	if resp.ExpiresAt != nil {
		expiresAt := time.UnixMilli(*resp.ExpiresAt).Local().Format(time.RFC1123)
		_, _ = fmt.Fprintf(out, "Expires:    %s\n", color.YellowString(expiresAt))
	}

	if !opts.noClipboard {
		if err := a.copyToClipboard(link); err == nil {
			_, _ = fmt.Fprintln(out)
			_, _ = fmt.Fprintln(out, color.GreenString("✓")+" Link copied to clipboard")
		}
	}
	return nil
}

// readSecret takes --text, then --file, then piped stdin.
func (a *app) readSecret(stdin io.Reader, opts *createOptions) (string, error) {
	if opts.text != "" {
		return opts.text, nil
	}

	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(data), nil
	}

	if a.stdinIsTerminal() {
		return "", errors.New("no input provided. Use --text, --file, or pipe input")
	}
	data, err := io.ReadAll(io.LimitReader(stdin, dto.MaxCiphertextLength))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
