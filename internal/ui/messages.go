// Package ui provides the Bubble Tea TUI for drift: the rendering
// collaborator for the feed session and the event loop that feeds scroll
// samples to the visibility and velocity layers.
package ui

import (
	"github.com/perivale/drift/internal/content"
	"github.com/perivale/drift/internal/session"
)

// pageLoaded is sent when a page fetch finishes.
type pageLoaded struct {
	Req    *session.LoadRequest
	Result *content.PageResult
	Err    error
}

// frameTick drives the scroll animation, velocity sampling, and
// visibility observation. One per frame.
type frameTick struct{}
