package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/allisson/ots/internal/client"
	"github.com/allisson/ots/internal/envelope"
)

type redeemOptions struct {
	password    string
	server      string
	noClipboard bool
}

func newRedeemCmd(a *app) *cobra.Command {
	opts := &redeemOptions{}

	cmd := &cobra.Command{
		Use:   "redeem <link>",
		Short: "Redeem a one-time secret",
		Long:  "Fetch and decrypt a secret from its share link. The key in the link is never sent to the server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRedeem(cmd, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.password, "password", "p", "", "Password to decrypt the secret")
	flags.StringVarP(&opts.server, "server", "s", "", "Override the server URL")
	flags.BoolVarP(&opts.noClipboard, "no-clipboard", "n", false, "Do not copy the secret to the clipboard")

	return cmd
}

func (a *app) runRedeem(cmd *cobra.Command, link string, opts *redeemOptions) error {
	id, key, err := envelope.ParseLink(link)
	if err != nil {
		return err
	}

	c, err := a.newClient(opts.server, linkServerURL(link, id))
	if err != nil {
		return err
	}

	resp, err := c.RedeemSecret(cmd.Context(), id)
	if errors.Is(err, client.ErrSecretNotFound) {
		return client.ErrSecretNotFound
	}
	if err != nil {
		return fmt.Errorf("retrieve secret: %w", err)
	}

	env := &envelope.Envelope{
		Ciphertext: resp.Ciphertext,
		IV:         resp.IV,
		Salt:       resp.Salt,
		Key:        key,
	}

	plaintext, err := a.decrypt(cmd, env, opts.password)
	if err != nil {
		return fmt.Errorf("decrypt secret: %w", err)
	}

	errOut := cmd.ErrOrStderr()
	_, _ = fmt.Fprintln(errOut, color.GreenString("✓")+" Secret retrieved")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), plaintext)

	if !opts.noClipboard {
		if err := a.copyToClipboard(plaintext); err == nil {
			_, _ = fmt.Fprintln(errOut, color.GreenString("✓")+" Copied to clipboard")
		}
	}
	return nil
}

// decrypt prompts for a password on a terminal when the envelope has a password layer.
// The read is already spent at this point, so a wrong password cannot be retried.
func (a *app) decrypt(cmd *cobra.Command, env *envelope.Envelope, password string) (string, error) {
	plaintext, err := envelope.Decrypt(env, password)
	if !errors.Is(err, envelope.ErrPasswordRequired) {
		return plaintext, err
	}

	if !a.stdinIsTerminal() {
		return "", errors.New("password required (use --password or run in a terminal)")
	}

	_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
	password, err = a.readPassword()
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return envelope.Decrypt(env, password)
}
