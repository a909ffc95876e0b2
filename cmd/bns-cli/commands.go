// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/devcode1981/stacks-blockchain/lib/cli"
	"github.com/devcode1981/stacks-blockchain/lib/config"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
	"github.com/devcode1981/stacks-blockchain/rpc"
	"github.com/devcode1981/stacks-blockchain/snv"
)

// defaultNode is the local node's RPC address. Overridden by --node or
// BNS_NODE.
const defaultNode = "http://127.0.0.1:6264"

// nodeFlag adds the shared --node flag to a flag set and returns the
// target.
func nodeFlag(fs *pflag.FlagSet) *string {
	fallback := os.Getenv("BNS_NODE")
	if fallback == "" {
		fallback = defaultNode
	}
	return fs.String("node", fallback, "node RPC base URL")
}

func newClient(node string) *rpc.Client {
	return rpc.NewClient(node, nil)
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func infoCommand() *cli.Command {
	var node *string
	return &cli.Command{
		Name:    "info",
		Summary: "Show the node's network and chain tip",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("info", pflag.ContinueOnError)
			node = nodeFlag(fs)
			return fs
		},
		Run: func([]string) error {
			ctx, cancel := cmdContext()
			defer cancel()
			info, err := newClient(*node).Info(ctx)
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
}

func nameCommand() *cli.Command {
	var node *string
	flags := func(name string) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			node = nodeFlag(fs)
			return fs
		}
	}
	return &cli.Command{
		Name:    "name",
		Summary: "Name lookups, history, and price quotes",
		Subcommands: []*cli.Command{
			{
				Name:    "get",
				Summary: "Resolve a name to its current record",
				Usage:   "bns-cli name get <fqn> [flags]",
				Flags:   flags("get"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli name get <fqn>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					record, err := newClient(*node).GetName(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(record)
				},
			},
			{
				Name:    "history",
				Summary: "Show a name's accepted operations",
				Usage:   "bns-cli name history <fqn> [flags]",
				Flags:   flags("history"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli name history <fqn>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					history, err := newClient(*node).NameHistory(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(history)
				},
			},
			{
				Name:    "zonefile",
				Summary: "Print a name's current zonefile",
				Usage:   "bns-cli name zonefile <fqn> [flags]",
				Flags:   flags("zonefile"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli name zonefile <fqn>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					body, err := newClient(*node).NameZonefile(ctx, args[0])
					if err != nil {
						return err
					}
					os.Stdout.Write(body)
					return nil
				},
			},
			{
				Name:    "price",
				Summary: "Quote a name registration",
				Usage:   "bns-cli name price <fqn> [flags]",
				Flags:   flags("price"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli name price <fqn>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					units, err := newClient(*node).NamePrice(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Println(units)
					return nil
				},
			},
		},
	}
}

func namespaceCommand() *cli.Command {
	var node *string
	var page *int
	flags := func(name string, withPage bool) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			node = nodeFlag(fs)
			if withPage {
				page = fs.Int("page", 0, "result page")
			}
			return fs
		}
	}
	return &cli.Command{
		Name:    "namespace",
		Summary: "Namespace listings and price quotes",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Summary: "List launched namespaces",
				Flags:   flags("list", false),
				Run: func([]string) error {
					ctx, cancel := cmdContext()
					defer cancel()
					ids, err := newClient(*node).Namespaces(ctx)
					if err != nil {
						return err
					}
					return printJSON(ids)
				},
			},
			{
				Name:    "show",
				Summary: "Show a namespace's record",
				Usage:   "bns-cli namespace show <id> [flags]",
				Flags:   flags("show", false),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli namespace show <id>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					record, err := newClient(*node).GetNamespace(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(record)
				},
			},
			{
				Name:    "names",
				Summary: "List names in a namespace, paged",
				Usage:   "bns-cli namespace names <id> [--page N] [flags]",
				Flags:   flags("names", true),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli namespace names <id>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					names, err := newClient(*node).NamespaceNames(ctx, args[0], *page)
					if err != nil {
						return err
					}
					return printJSON(names)
				},
			},
			{
				Name:    "price",
				Summary: "Quote a namespace creation",
				Usage:   "bns-cli namespace price <id> [flags]",
				Flags:   flags("price", false),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli namespace price <id>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					units, err := newClient(*node).NamespacePrice(ctx, args[0])
					if err != nil {
						return err
					}
					fmt.Println(units)
					return nil
				},
			},
		},
	}
}

func addressCommand() *cli.Command {
	var node *string
	return &cli.Command{
		Name:    "address",
		Summary: "List the names an address owns",
		Usage:   "bns-cli address <address> [flags]",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("address", pflag.ContinueOnError)
			node = nodeFlag(fs)
			return fs
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: bns-cli address <address>")
			}
			ctx, cancel := cmdContext()
			defer cancel()
			names, err := newClient(*node).NamesOwnedBy(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(names)
		},
	}
}

func subdomainCommand() *cli.Command {
	var node *string
	flags := func(name string) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			node = nodeFlag(fs)
			return fs
		}
	}
	return &cli.Command{
		Name:    "subdomain",
		Summary: "Subdomain resolution",
		Subcommands: []*cli.Command{
			{
				Name:    "get",
				Summary: "Resolve a subdomain",
				Usage:   "bns-cli subdomain get <fqn> [flags]",
				Flags:   flags("get"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli subdomain get <fqn>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					sub, err := newClient(*node).GetSubdomain(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(sub)
				},
			},
			{
				Name:    "list",
				Summary: "List subdomains under a domain",
				Usage:   "bns-cli subdomain list <domain> [flags]",
				Flags:   flags("list"),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli subdomain list <domain>")
					}
					ctx, cancel := cmdContext()
					defer cancel()
					names, err := newClient(*node).Subdomains(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(names)
				},
			},
		},
	}
}

func zonefileCommand() *cli.Command {
	var node *string
	return &cli.Command{
		Name:    "zonefile",
		Summary: "Submit a zonefile to the node",
		Usage:   "bns-cli zonefile put <file> [flags]",
		Subcommands: []*cli.Command{
			{
				Name:    "put",
				Summary: "Submit zonefile content from a file",
				Usage:   "bns-cli zonefile put <file> [flags]",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("put", pflag.ContinueOnError)
					node = nodeFlag(fs)
					return fs
				},
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli zonefile put <file>")
					}
					body, err := os.ReadFile(args[0])
					if err != nil {
						return err
					}
					ctx, cancel := cmdContext()
					defer cancel()
					hash, err := newClient(*node).PutZonefile(ctx, body)
					if err != nil {
						return err
					}
					fmt.Println(hash)
					return nil
				},
			},
		},
	}
}

func consensusCommand() *cli.Command {
	var node *string
	var anchorHeight *uint64
	var anchorHash *string
	flags := func(name string, withAnchor bool) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			node = nodeFlag(fs)
			if withAnchor {
				anchorHeight = fs.Uint64("anchor-height", 0, "trusted anchor height")
				anchorHash = fs.String("anchor-hash", "", "trusted anchor consensus hash (hex)")
			}
			return fs
		}
	}
	return &cli.Command{
		Name:    "consensus",
		Summary: "Consensus hashes and light-client verification",
		Subcommands: []*cli.Command{
			{
				Name:    "show",
				Summary: "Show the node's claimed consensus hash at a height",
				Usage:   "bns-cli consensus show <height> [flags]",
				Flags:   flags("show", false),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli consensus show <height>")
					}
					height, err := parseHeightArg(args[0])
					if err != nil {
						return err
					}
					ctx, cancel := cmdContext()
					defer cancel()
					ch, err := newClient(*node).ConsensusAt(ctx, height)
					if err != nil {
						return err
					}
					fmt.Println(ch)
					return nil
				},
			},
			{
				Name:    "verify",
				Summary: "Verify a historical consensus hash against a trust anchor",
				Usage:   "bns-cli consensus verify <height> --anchor-height H --anchor-hash HEX [flags]",
				Flags:   flags("verify", true),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli consensus verify <height>")
					}
					target, err := parseHeightArg(args[0])
					if err != nil {
						return err
					}
					if *anchorHeight == 0 || *anchorHash == "" {
						return fmt.Errorf("--anchor-height and --anchor-hash are required")
					}
					anchor, err := hashing.ParseConsensusHash(*anchorHash)
					if err != nil {
						return err
					}

					ctx, cancel := cmdContext()
					defer cancel()
					client := newClient(*node)
					params, err := nodeParams(ctx, client)
					if err != nil {
						return err
					}

					verifier := snv.NewVerifier(client, params)
					verified, err := verifier.VerifyConsensus(ctx, *anchorHeight, anchor, target)
					if err != nil {
						return err
					}
					fmt.Println(verified)
					return nil
				},
			},
			{
				Name:    "operation",
				Summary: "Verify an operation by serial number (height-vtxindex)",
				Usage:   "bns-cli consensus operation <serial> --anchor-height H --anchor-hash HEX [flags]",
				Flags:   flags("operation", true),
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: bns-cli consensus operation <serial>")
					}
					serial, err := snv.ParseSerialNumber(args[0])
					if err != nil {
						return err
					}
					if *anchorHeight == 0 || *anchorHash == "" {
						return fmt.Errorf("--anchor-height and --anchor-hash are required")
					}
					anchor, err := hashing.ParseConsensusHash(*anchorHash)
					if err != nil {
						return err
					}

					ctx, cancel := cmdContext()
					defer cancel()
					client := newClient(*node)
					params, err := nodeParams(ctx, client)
					if err != nil {
						return err
					}

					verifier := snv.NewVerifier(client, params)
					op, err := verifier.VerifyOperation(ctx, *anchorHeight, anchor, serial)
					if err != nil {
						return err
					}
					return printJSON(op)
				},
			},
		},
	}
}

// nodeParams asks the node which network it indexes and returns the
// matching chain parameters for local verification.
func nodeParams(ctx context.Context, client *rpc.Client) (config.ChainParams, error) {
	info, err := client.Info(ctx)
	if err != nil {
		return config.ChainParams{}, err
	}
	return config.Params(config.Network(info.Network))
}

func parseHeightArg(raw string) (uint64, error) {
	var height uint64
	if _, err := fmt.Sscanf(raw, "%d", &height); err != nil {
		return 0, fmt.Errorf("invalid height %q", raw)
	}
	return height, nil
}
