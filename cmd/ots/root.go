package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/allisson/ots/internal/client"
)

// app holds the process dependencies the commands touch, so tests can swap them.
type app struct {
	loadConfig      func() *client.Config
	copyToClipboard func(text string) error
	stdinIsTerminal func() bool
	readPassword    func() (string, error)
}

func defaultApp() *app {
	return &app{
		loadConfig:      client.LoadConfig,
		copyToClipboard: clipboard.WriteAll,
		stdinIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		readPassword: func() (string, error) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			if err != nil {
				return "", fmt.Errorf("read password: %w", err)
			}
			return string(b), nil
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ots",
		Short:         "One-time secret CLI",
		Long:          "Create and redeem one-time secrets. Secrets are encrypted locally; the server only stores ciphertext.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newRedeemCmd(a))
	root.AddCommand(newDeleteCmd(a))
	return root
}

// newClient picks the server from the flag, then the link, then OTS_SERVER_URL.
func (a *app) newClient(flagServer, linkServer string) (*client.Client, error) {
	serverURL := flagServer
	if serverURL == "" {
		serverURL = linkServer
	}
	if serverURL == "" {
		serverURL = a.loadConfig().ServerURL
	}
	return client.New(serverURL)
}

// linkServerURL returns the server root a share link points at, keeping any path
// prefix in front of /s/{id}. It is empty for links without a host.
func linkServerURL(raw, id string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	prefix := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/s/"+id)
	return u.Scheme + "://" + u.Host + prefix
}
