package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/ots/cmd/app/commands"
	"github.com/allisson/ots/internal/app"
	"github.com/allisson/ots/internal/config"
	"github.com/allisson/ots/internal/fieldcrypt"
)

func getKeyCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-field-key",
			Usage: "Generate a new FIELD_ENCRYPTION_KEY for at-rest field encryption",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "kms-provider",
					Value: "",
					Usage: "KMS provider (localsecrets, gcpkms, awskms, azurekeyvault, hashivault); omit for a raw key",
				},
				&cli.StringFlag{
					Name:  "kms-key-uri",
					Value: "",
					Usage: "KMS key URI (e.g., base64key://, gcpkms://projects/.../cryptoKeys/...)",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunCreateFieldKey(
					ctx,
					fieldcrypt.NewKMSService(),
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("kms-provider"),
					cmd.String("kms-key-uri"),
				)
			},
		},
	}
}
