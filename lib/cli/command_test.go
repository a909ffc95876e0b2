// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestDispatchAndFlags(t *testing.T) {
	var got []string
	var verbose bool

	root := &Command{
		Name: "tool",
		Subcommands: []*Command{
			{
				Name: "show",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("show", pflag.ContinueOnError)
					fs.BoolVar(&verbose, "verbose", false, "")
					return fs
				},
				Run: func(args []string) error {
					got = args
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"show", "--verbose", "thing"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !verbose || len(got) != 1 || got[0] != "thing" {
		t.Errorf("verbose=%v args=%v", verbose, got)
	}
}

func TestUnknownSubcommand(t *testing.T) {
	root := &Command{Name: "tool", Subcommands: []*Command{{Name: "show"}}}
	err := root.Execute([]string{"shwo"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v", err)
	}
}

func TestHelpOutputListsSubcommands(t *testing.T) {
	root := &Command{
		Name: "tool",
		Subcommands: []*Command{
			{Name: "show", Summary: "Show a thing"},
			{Name: "list", Summary: "List things"},
		},
	}
	var out strings.Builder
	root.PrintHelp(&out)
	for _, want := range []string{"show", "Show a thing", "list", "List things"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help output missing %q", want)
		}
	}
}
