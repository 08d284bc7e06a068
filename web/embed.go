// Package web embeds the built dashboard assets for single-binary distribution.
package web

import "embed"

// Assets contains the dashboard production build output.
// The static/ directory is created by `pnpm run build` in the web/ directory.
//
//go:embed all:static
var Assets embed.FS
