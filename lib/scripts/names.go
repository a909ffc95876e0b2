// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package scripts defines the on-chain grammar of the naming protocol:
// what a well-formed name looks like, the operation opcodes and their
// wire framing, the preorder blind, and the fee schedule. Everything
// in this package is consensus-critical.
package scripts

import (
	"fmt"
	"strings"

	"github.com/devcode1981/stacks-blockchain/lib/b40"
	"github.com/devcode1981/stacks-blockchain/lib/hashing"
)

const (
	// MaxFQNLength is the maximum length of a fully-qualified name,
	// "label.namespace" including the dot. Bounded so a name always
	// fits in a single operation payload.
	MaxFQNLength = 37

	// MaxNamespaceIDLength bounds the namespace identifier.
	MaxNamespaceIDLength = 19
)

// ParseFQN splits a fully-qualified name into its label and namespace
// and validates both. A fully-qualified name is "label.ns" — exactly
// one dot, both parts non-empty.
func ParseFQN(fqn string) (label, namespace string, err error) {
	if len(fqn) > MaxFQNLength {
		return "", "", fmt.Errorf("scripts: name %q exceeds %d characters", fqn, MaxFQNLength)
	}

	dot := strings.IndexByte(fqn, '.')
	if dot < 0 || strings.IndexByte(fqn[dot+1:], '.') >= 0 {
		return "", "", fmt.Errorf("scripts: name %q must have exactly one dot", fqn)
	}

	label, namespace = fqn[:dot], fqn[dot+1:]
	if err := validateLabel(label); err != nil {
		return "", "", err
	}
	if err := ValidateNamespaceID(namespace); err != nil {
		return "", "", err
	}
	return label, namespace, nil
}

// ValidateFQN reports whether fqn is a well-formed fully-qualified
// name.
func ValidateFQN(fqn string) error {
	_, _, err := ParseFQN(fqn)
	return err
}

func validateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("scripts: empty name label")
	}
	// Labels may use the full base-40 alphabet except the separator.
	if strings.ContainsAny(label, ".") || !b40.IsB40(label) {
		return fmt.Errorf("scripts: name label %q has characters outside the base-40 alphabet", label)
	}
	return nil
}

// ValidateNamespaceID checks a bare namespace identifier. Namespace
// IDs are base-40 minus '.' and '+' (the separator and the future
// version marker).
func ValidateNamespaceID(namespace string) error {
	if namespace == "" {
		return fmt.Errorf("scripts: empty namespace")
	}
	if len(namespace) > MaxNamespaceIDLength {
		return fmt.Errorf("scripts: namespace %q exceeds %d characters", namespace, MaxNamespaceIDLength)
	}
	if strings.ContainsAny(namespace, ".+") || !b40.IsB40(namespace) {
		return fmt.Errorf("scripts: namespace %q has characters outside its alphabet", namespace)
	}
	return nil
}

// ValidateSubdomainLabel checks the leaf label of a subdomain
// (label.name.ns). Same alphabet as on-chain name labels; the length
// bound is looser since subdomain names never ride in an operation
// payload.
func ValidateSubdomainLabel(label string) error {
	if len(label) > 63 {
		return fmt.Errorf("scripts: subdomain label %q exceeds 63 characters", label)
	}
	return validateLabel(label)
}

// PreorderHash computes the blind that a preorder commits to:
// Hash160 over "fqn,sender,registrant". The name stays hidden until
// the matching registration reveals it; including the sender and the
// registrant address prevents another party from stealing the
// preorder by front-running the registration.
func PreorderHash(fqn, sender, registrant string) [hashing.Hash160Size]byte {
	return hashing.Hash160([]byte(fqn + "," + sender + "," + registrant))
}

// NamespacePreorderHash computes the blind for a namespace preorder:
// Hash160 over "ns,sender".
func NamespacePreorderHash(namespace, sender string) [hashing.Hash160Size]byte {
	return hashing.Hash160([]byte(namespace + "," + sender))
}
