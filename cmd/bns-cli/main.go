// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// bns-cli queries a BNS node: name lookups, namespace listings, price
// quotes, subdomain resolution, zonefile submission, and light-client
// consensus verification.
package main

import (
	"fmt"
	"os"

	"github.com/devcode1981/stacks-blockchain/lib/cli"
	"github.com/devcode1981/stacks-blockchain/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	root := &cli.Command{
		Name: "bns-cli",
		Description: `bns-cli: query a BNS node.

Resolves names, namespaces, and subdomains; quotes prices; submits
zonefiles; and verifies consensus hashes against a trust anchor.`,
		Subcommands: []*cli.Command{
			infoCommand(),
			nameCommand(),
			namespaceCommand(),
			addressCommand(),
			subdomainCommand(),
			zonefileCommand(),
			consensusCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func([]string) error {
					fmt.Printf("bns-cli %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{Description: "Resolve a name", Command: "bns-cli name get muneeb.id"},
			{Description: "Quote a registration", Command: "bns-cli name price muneeb.id"},
			{Description: "Verify a historical consensus hash", Command: "bns-cli consensus verify 373601 --anchor-height 400000 --anchor-hash <hex>"},
		},
	}
	return root.Execute(os.Args[1:])
}
