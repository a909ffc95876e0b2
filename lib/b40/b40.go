// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package b40 implements the base-40 encoding used for on-chain names.
//
// The alphabet is the 40 characters legal in a name:
//
//	0123456789abcdefghijklmnopqrstuvwxyz-_.+
//
// Names travel on-chain as raw bytes inside size-capped transaction
// payloads, so the encoding must be compact and reversible. Encoding is
// big-integer base conversion with leading zero bytes preserved as
// leading '0' digits, mirroring how base58 handles leading zeros.
package b40

import (
	"fmt"
	"math/big"
	"strings"
)

// Alphabet is the base-40 digit set, in digit-value order. Index in
// this string is the digit's numeric value.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz-_.+"

var digitValue = func() map[rune]int {
	m := make(map[rune]int, len(Alphabet))
	for i, r := range Alphabet {
		m[r] = i
	}
	return m
}()

var base = big.NewInt(40)

// IsB40 reports whether every character of s is in the base-40
// alphabet. The empty string is valid base-40 (it encodes zero bytes).
func IsB40(s string) bool {
	for _, r := range s {
		if _, ok := digitValue[r]; !ok {
			return false
		}
	}
	return true
}

// Encode converts raw bytes to their base-40 string representation.
// Leading zero bytes are preserved as leading '0' digits so that
// Decode(Encode(b)) always returns b exactly.
func Encode(data []byte) string {
	leadingZeros := 0
	for leadingZeros < len(data) && data[leadingZeros] == 0 {
		leadingZeros++
	}

	var builder strings.Builder
	for range leadingZeros {
		builder.WriteByte(Alphabet[0])
	}

	value := new(big.Int).SetBytes(data[leadingZeros:])
	if value.Sign() == 0 {
		return builder.String()
	}

	// Digits come out least-significant first; collect then reverse.
	digits := make([]byte, 0, len(data)*2)
	remainder := new(big.Int)
	for value.Sign() > 0 {
		value.QuoRem(value, base, remainder)
		digits = append(digits, Alphabet[remainder.Int64()])
	}
	for i := len(digits) - 1; i >= 0; i-- {
		builder.WriteByte(digits[i])
	}
	return builder.String()
}

// Decode converts a base-40 string back to the raw bytes it encodes.
// Returns an error if s contains any character outside the alphabet.
func Decode(s string) ([]byte, error) {
	leadingZeros := 0
	for leadingZeros < len(s) && s[leadingZeros] == Alphabet[0] {
		leadingZeros++
	}

	value := new(big.Int)
	for _, r := range s {
		digit, ok := digitValue[r]
		if !ok {
			return nil, fmt.Errorf("b40: invalid character %q", r)
		}
		value.Mul(value, base)
		value.Add(value, big.NewInt(int64(digit)))
	}

	body := value.Bytes()
	result := make([]byte, leadingZeros+len(body))
	copy(result[leadingZeros:], body)
	return result, nil
}
