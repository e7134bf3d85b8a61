// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package display shows and exports terrain result images.
//
// A [Viewport] is a pan and zoom camera driven by held keys (W/A/S/D or the
// arrows to move, Q/Z to zoom out, E/X to zoom in). A [Presenter] renders the
// result through the viewport into a window using gpucontext.TextureDrawer,
// and [SavePNG] writes the same view to a file.
package display
