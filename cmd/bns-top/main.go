// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// bns-top is a live terminal view of a node: chain tip, namespace
// name listings with fuzzy filtering, and per-name detail.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/devcode1981/stacks-blockchain/lib/version"
	"github.com/devcode1981/stacks-blockchain/rpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("bns-top", pflag.ContinueOnError)
	node := fs.String("node", defaultNodeURL(), "node RPC base URL")
	showVersion := fs.Bool("version", false, "print version information and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}
	if *showVersion {
		version.Print("bns-top")
		return nil
	}

	model := newModel(rpc.NewClient(*node, nil), *node)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func defaultNodeURL() string {
	if env := os.Getenv("BNS_NODE"); env != "" {
		return env
	}
	return "http://127.0.0.1:6264"
}
