package magzfeed

import "embed"

// EmbeddedAssets contains static assets shipped with the binary: feed.js,
// the category page's load-more script.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
