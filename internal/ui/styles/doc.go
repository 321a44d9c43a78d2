// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the inkwell editor.

All colors use Lip Gloss AdaptiveColor. A Theme binds them to its own
renderer with the background forced light or dark, so the configured
ui.theme wins over terminal detection.

# Highlights

Each marker class has its own style:

	spelling-highlight      - Rose underline
	grammar-highlight       - Amber underline
	inconsistency-highlight - Purple underline

Ghost continuations render muted and italic after the cursor.

# Usage

	theme := styles.NewTheme(cfg.UI.Theme)
	word := theme.HighlightStyle(marker.Class).Render(text)
	label := theme.StatusStyle(status).Render(status.String())
*/
package styles
