// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time so worker loops can be tested without
// real waiting.
package clock
