// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package subdomains

import (
	"bufio"
	"bytes"
	"sort"
	"strings"
)

// ExtractRecords parses subdomain records out of an on-chain name's
// zonefile. Lines that are not subdomain TXT records (other record
// types, comments, malformed entries) are skipped, not errors: parent
// zonefiles legitimately carry non-subdomain content.
//
// Records are returned ordered by (FQN, Seqn) so replaying them in
// slice order applies ownership chains correctly even when one
// zonefile carries several updates for the same subdomain.
func ExtractRecords(domain string, zonefile []byte) []*Record {
	var records []*Record

	scanner := bufio.NewScanner(bytes.NewReader(zonefile))
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "$") {
			continue
		}

		label, data, ok := splitTXT(line)
		if !ok {
			continue
		}
		record, err := ParseTXT(domain, label, data)
		if err != nil {
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].FQN != records[j].FQN {
			return records[i].FQN < records[j].FQN
		}
		return records[i].Seqn < records[j].Seqn
	})
	return records
}

// splitTXT dissects one zonefile line of the form
//
//	label [ttl] [IN] TXT "chunk" "chunk" ...
//
// returning the label and the concatenated chunk data.
func splitTXT(line string) (label, data string, ok bool) {
	quote := strings.IndexByte(line, '"')
	if quote < 0 {
		return "", "", false
	}

	head := strings.Fields(line[:quote])
	if len(head) < 2 || head[len(head)-1] != "TXT" {
		return "", "", false
	}
	label = head[0]

	// TXT data over 255 bytes splits into multiple quoted
	// character-strings; concatenate them.
	var b strings.Builder
	rest := line[quote:]
	for {
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start+1:], '"')
		if end < 0 {
			return "", "", false
		}
		b.WriteString(rest[start+1 : start+1+end])
		rest = rest[start+1+end+1:]
	}
	return label, b.String(), true
}
