package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/certificate-registry/cmd/flags"
	"github.com/ruteri/certificate-registry/common"
)

var flagID = &cli.StringFlag{
	Name:     "id",
	Required: true,
	Usage:    "certificate id",
}
var flagStudent = &cli.StringFlag{
	Name:     "student",
	Required: true,
	Usage:    "student name",
}
var flagCourse = &cli.StringFlag{
	Name:     "course",
	Required: true,
	Usage:    "course name",
}
var flagDate = &cli.StringFlag{
	Name:     "date",
	Required: true,
	Usage:    "issue date",
}
var flagAddress = &cli.StringFlag{
	Name:     "address",
	Required: true,
	Usage:    "issuer address",
}
var flagOptionalAddress = &cli.StringFlag{
	Name:  "address",
	Usage: "address to check, defaults to the signer",
}
var flagWatch = &cli.BoolFlag{
	Name:  "watch",
	Usage: "keep indexing new events until interrupted",
}
var flagContentID = &cli.StringFlag{
	Name:     "id",
	Required: true,
	Usage:    "archive content id (64 hex characters)",
}
var flagContentType = &cli.StringFlag{
	Name:  "type",
	Value: "receipts",
	Usage: "archive namespace: receipts or certificates",
}

func main() {
	app := &cli.App{
		Name:    "certctl",
		Usage:   "issue, revoke and verify certificates in the on-chain registry",
		Version: common.Version,
		Flags:   append(append([]cli.Flag{}, flags.LedgerFlags...), flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "issue a certificate signed by the configured key",
				Flags: []cli.Flag{flagID, flagStudent, flagCourse, flagDate},
				Action: withEnv(func(e *env) error {
					return e.cmdIssue()
				}),
			},
			{
				Name:   "revoke",
				Usage:  "revoke a certificate",
				Flags:  []cli.Flag{flagID},
				Action: withEnv(func(e *env) error { return e.cmdRevoke() }),
			},
			{
				Name:   "verify",
				Usage:  "print whether a certificate is valid",
				Flags:  []cli.Flag{flagID},
				Action: withEnv(func(e *env) error { return e.cmdVerify() }),
			},
			{
				Name:   "show",
				Usage:  "print certificate details",
				Flags:  []cli.Flag{flagID},
				Action: withEnv(func(e *env) error { return e.cmdShow() }),
			},
			{
				Name:   "check",
				Usage:  "print certificate details with a fresh validity check",
				Flags:  []cli.Flag{flagID},
				Action: withEnv(func(e *env) error { return e.cmdCheck() }),
			},
			{
				Name:   "authorize-issuer",
				Usage:  "grant issuing rights (owner only)",
				Flags:  []cli.Flag{flagAddress},
				Action: withEnv(func(e *env) error { return e.cmdAuthorizeIssuer() }),
			},
			{
				Name:   "revoke-issuer",
				Usage:  "withdraw issuing rights (owner only)",
				Flags:  []cli.Flag{flagAddress},
				Action: withEnv(func(e *env) error { return e.cmdRevokeIssuer() }),
			},
			{
				Name:   "is-issuer",
				Usage:  "print whether an address may issue certificates",
				Flags:  []cli.Flag{flagAddress},
				Action: withEnv(func(e *env) error { return e.cmdIsIssuer() }),
			},
			{
				Name:   "owner",
				Usage:  "print whether an address owns the registry",
				Flags:  []cli.Flag{flagOptionalAddress},
				Action: withEnv(func(e *env) error { return e.cmdOwner() }),
			},
			{
				Name:   "whoami",
				Usage:  "print the signer address and its rights",
				Action: withEnv(func(e *env) error { return e.cmdWhoami() }),
			},
			{
				Name:   "health",
				Usage:  "check ledger and archive connectivity",
				Action: withEnv(func(e *env) error { return e.cmdHealth() }),
			},
			{
				Name:   "index",
				Usage:  "synchronize registry events into the local index",
				Flags:  []cli.Flag{flagWatch},
				Action: withEnv(func(e *env) error { return e.cmdIndex() }),
			},
			{
				Name:   "list-issued",
				Usage:  "list indexed certificates issued by an address",
				Flags:  []cli.Flag{flagAddress},
				Action: withEnv(func(e *env) error { return e.cmdListIssued() }),
			},
			{
				Name:   "history",
				Usage:  "print the indexed events of a certificate",
				Flags:  []cli.Flag{flagID},
				Action: withEnv(func(e *env) error { return e.cmdHistory() }),
			},
			{
				Name:   "archive-get",
				Usage:  "print an archived receipt or certificate",
				Flags:  []cli.Flag{flagContentID, flagContentType},
				Action: withEnv(func(e *env) error { return e.cmdArchiveGet() }),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
