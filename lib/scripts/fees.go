// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package scripts

import (
	"fmt"
	"strings"
)

// PriceCurve is a namespace's name-pricing function, fixed at
// namespace reveal and immutable afterwards. A name's price is
//
//	Coeff * Base^Buckets[min(len(label)-1, 15)]
//
// divided by NonalphaDiscount if the label contains digits or
// punctuation, and by NoVowelDiscount if it contains no vowels.
// All prices are in the chain's smallest fee unit.
type PriceCurve struct {
	Base             uint8     `cbor:"base" json:"base"`
	Coeff            uint8     `cbor:"coeff" json:"coeff"`
	Buckets          [16]uint8 `cbor:"buckets" json:"buckets"`
	NonalphaDiscount uint8     `cbor:"nonalpha_discount" json:"nonalpha_discount"`
	NoVowelDiscount  uint8     `cbor:"no_vowel_discount" json:"no_vowel_discount"`
}

// MinNameFee is the floor under every name price. Discounts never
// push a price below it.
const MinNameFee uint64 = 6250

// Validate checks curve parameters for the ranges the reveal payload
// can express and the price computation can survive without overflow.
func (c PriceCurve) Validate() error {
	if c.Base == 0 || c.Coeff == 0 {
		return fmt.Errorf("scripts: price curve base and coeff must be nonzero")
	}
	if c.NonalphaDiscount == 0 || c.NoVowelDiscount == 0 {
		return fmt.Errorf("scripts: price curve discounts must be nonzero (1 means no discount)")
	}
	for i, bucket := range c.Buckets {
		if bucket > 16 {
			return fmt.Errorf("scripts: price bucket %d exponent %d exceeds 16", i, bucket)
		}
	}
	return nil
}

// NamePrice computes the registration fee for a name label under this
// curve. The label must already be validated.
func (c PriceCurve) NamePrice(label string) uint64 {
	bucket := len(label) - 1
	if bucket > 15 {
		bucket = 15
	}
	if bucket < 0 {
		bucket = 0
	}

	price := uint64(c.Coeff) * pow64(uint64(c.Base), uint64(c.Buckets[bucket]))

	if hasNonalpha(label) {
		price /= uint64(c.NonalphaDiscount)
	}
	if !hasVowel(label) {
		price /= uint64(c.NoVowelDiscount)
	}

	if price < MinNameFee {
		return MinNameFee
	}
	return price
}

// NamespacePrice returns the fee to preorder a namespace. Shorter IDs
// cost exponentially more: one-character namespaces are premium,
// everything past eight characters hits the floor.
func NamespacePrice(namespace string) uint64 {
	const floor = 400_000_000 // 4 units at 10^8 subunits
	price := uint64(40_000_000_000_000)
	for i := 1; i < len(namespace) && price > floor; i++ {
		price /= 10
	}
	if price < floor {
		return floor
	}
	return price
}

func pow64(base, exponent uint64) uint64 {
	result := uint64(1)
	for range exponent {
		// The reveal payload caps base at 255 and exponents at 16;
		// saturate rather than wrap if a curve still overflows.
		next := result * base
		if base != 0 && next/base != result {
			return ^uint64(0)
		}
		result = next
	}
	return result
}

func hasNonalpha(label string) bool {
	return strings.ContainsAny(label, "0123456789-_.+")
}

func hasVowel(label string) bool {
	return strings.ContainsAny(label, "aeiouy")
}
