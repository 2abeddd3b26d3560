// Package web embeds the Moodify page templates and static assets.
package web

import "embed"

// TemplatesFS holds layouts, pages and htmx partials.
//
//go:embed all:templates
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and preview script.
//
//go:embed all:static
var StaticFS embed.FS
