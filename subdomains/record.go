// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package subdomains resolves off-chain names anchored to on-chain
// zonefiles.
//
// A subdomain lives entirely inside its parent name's zonefiles: each
// state change is a TXT record carrying the subdomain's owner key,
// a sequence number, its own zonefile content, and a signature. The
// scanner replays these records in chain order; sequence number 0
// creates a subdomain (self-signed), and each successor must be
// numbered one higher and signed by the previous owner's key. Parent
// name owners relay subdomain records but cannot forge transfers,
// since they never hold the subdomain keys.
package subdomains

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/devcode1981/stacks-blockchain/lib/scripts"
)

// maxParts caps the zf chunks a single TXT record may carry. TXT
// character-strings max out at 255 bytes, so large subdomain zonefiles
// split across parts.
const maxParts = 64

// chunkSize is the base64 payload length per zf part, sized to fit a
// TXT character-string alongside its key.
const chunkSize = 248

// Record is one subdomain state change parsed from a TXT record.
type Record struct {
	// FQN is the subdomain's full name: label.parent, three dot
	// segments in total.
	FQN string

	// Domain is the on-chain parent name the record rode in on.
	Domain string

	// Owner is the subdomain owner's ed25519 public key.
	Owner ed25519.PublicKey

	// Seqn orders the subdomain's state changes. 0 creates.
	Seqn uint64

	// Zonefile is the subdomain's own zonefile content.
	Zonefile []byte

	// Signature covers SigningPayload. Seqn 0 records are signed by
	// Owner; later records by the previous record's owner.
	Signature []byte
}

// ParseTXT parses a subdomain record from a zonefile TXT entry. label
// is the TXT record's name; data is the concatenated character-string
// payload.
func ParseTXT(domain, label, data string) (*Record, error) {
	if err := scripts.ValidateSubdomainLabel(label); err != nil {
		return nil, fmt.Errorf("subdomains: %w", err)
	}

	record := &Record{
		FQN:    label + "." + domain,
		Domain: domain,
	}

	parts := -1
	chunks := map[int]string{}

	for _, field := range strings.Fields(data) {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return nil, fmt.Errorf("subdomains: malformed field %q in record for %s", field, record.FQN)
		}
		switch {
		case key == "owner":
			decoded, err := base64.StdEncoding.DecodeString(value)
			if err != nil || len(decoded) != ed25519.PublicKeySize {
				return nil, fmt.Errorf("subdomains: bad owner key in record for %s", record.FQN)
			}
			record.Owner = ed25519.PublicKey(decoded)
		case key == "seqn":
			seqn, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("subdomains: bad seqn in record for %s: %w", record.FQN, err)
			}
			record.Seqn = seqn
		case key == "parts":
			count, err := strconv.Atoi(value)
			if err != nil || count < 0 || count > maxParts {
				return nil, fmt.Errorf("subdomains: bad parts count in record for %s", record.FQN)
			}
			parts = count
		case key == "sig":
			decoded, err := base64.StdEncoding.DecodeString(value)
			if err != nil || len(decoded) != ed25519.SignatureSize {
				return nil, fmt.Errorf("subdomains: bad signature in record for %s", record.FQN)
			}
			record.Signature = decoded
		case strings.HasPrefix(key, "zf"):
			index, err := strconv.Atoi(key[2:])
			if err != nil || index < 0 || index >= maxParts {
				return nil, fmt.Errorf("subdomains: bad chunk key %q in record for %s", key, record.FQN)
			}
			chunks[index] = value
		default:
			// Unknown fields are tolerated so the format can grow.
		}
	}

	if record.Owner == nil {
		return nil, fmt.Errorf("subdomains: record for %s has no owner", record.FQN)
	}
	if record.Signature == nil {
		return nil, fmt.Errorf("subdomains: record for %s has no signature", record.FQN)
	}
	if parts < 0 {
		return nil, fmt.Errorf("subdomains: record for %s has no parts count", record.FQN)
	}
	if len(chunks) != parts {
		return nil, fmt.Errorf("subdomains: record for %s has %d chunks, declared %d", record.FQN, len(chunks), parts)
	}

	var encoded strings.Builder
	for i := 0; i < parts; i++ {
		chunk, ok := chunks[i]
		if !ok {
			return nil, fmt.Errorf("subdomains: record for %s is missing chunk %d", record.FQN, i)
		}
		encoded.WriteString(chunk)
	}
	zonefile, err := base64.StdEncoding.DecodeString(encoded.String())
	if err != nil {
		return nil, fmt.Errorf("subdomains: bad zonefile encoding in record for %s: %w", record.FQN, err)
	}
	record.Zonefile = zonefile

	return record, nil
}

// TXT serializes the record to the TXT payload format ParseTXT reads.
func (r *Record) TXT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "owner=%s seqn=%d",
		base64.StdEncoding.EncodeToString(r.Owner), r.Seqn)

	encoded := base64.StdEncoding.EncodeToString(r.Zonefile)
	var parts int
	for start := 0; start < len(encoded); start += chunkSize {
		end := min(start+chunkSize, len(encoded))
		fmt.Fprintf(&b, " zf%d=%s", parts, encoded[start:end])
		parts++
	}
	// An empty zonefile still declares zero parts.
	fmt.Fprintf(&b, " parts=%d", parts)

	if r.Signature != nil {
		fmt.Fprintf(&b, " sig=%s", base64.StdEncoding.EncodeToString(r.Signature))
	}
	return b.String()
}

// SigningPayload is the byte string the record's signature covers:
// everything except the signature itself, bound to the subdomain's
// name so a record cannot be replayed under another label.
func (r *Record) SigningPayload() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%s",
		r.FQN,
		base64.StdEncoding.EncodeToString(r.Owner),
		r.Seqn,
		base64.StdEncoding.EncodeToString(r.Zonefile))
	return []byte(b.String())
}

// Sign signs the record with a private key. For creation records the
// key must match Owner; for updates it is the previous owner's key.
func (r *Record) Sign(key ed25519.PrivateKey) {
	r.Signature = ed25519.Sign(key, r.SigningPayload())
}

// Verify checks the record's signature against the key that must have
// produced it.
func (r *Record) Verify(signer ed25519.PublicKey) error {
	if len(signer) != ed25519.PublicKeySize {
		return fmt.Errorf("subdomains: bad signer key for %s", r.FQN)
	}
	if !ed25519.Verify(signer, r.SigningPayload(), r.Signature) {
		return fmt.Errorf("subdomains: signature verification failed for %s seqn %d", r.FQN, r.Seqn)
	}
	return nil
}
