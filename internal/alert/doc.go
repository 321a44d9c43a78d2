// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package alert defines the findings returned by the analysis backend and
// the in-memory collection the editor keeps of them.
//
// # Key Types
//
//   - Alert: one finding (type, original text, explanation, optional id)
//   - Kind: category tag such as SPELLING or INCONSISTENCY
//   - Set: the current ordered alert collection plus the dismissed-set
//
// A Set is replaced wholesale by every analyze response. Dismissed indices
// are positional within the current collection, so a replacement starts a
// new generation with an empty dismissed-set.
package alert
