// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package highlight keeps a document's highlight markers in step with the
// current alert collection.
//
// Every pass strips all markers, de-duplicates the alerts, and wraps each
// occurrence of every alert's text in a fresh marker. Because the pass
// starts from plain text, running it twice with the same alerts yields the
// same layout. Alerts whose text is no longer in the document are skipped.
package highlight
