// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "time"

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// DotsSpinner is shown next to "Analyzing..." while a request is in flight.
var DotsSpinner = SpinnerConfig{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    6,
}

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// Frame returns the frame to show after elapsed.
func (s SpinnerConfig) Frame(elapsed time.Duration) string {
	if len(s.Frames) == 0 {
		return ""
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return s.Frames[int(elapsed/s.Duration())%len(s.Frames)]
}
