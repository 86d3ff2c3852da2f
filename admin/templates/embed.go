// Package templates embeds the admin UI HTML templates so the binary
// can serve the admin console without shipping template files alongside it.
package templates

import "embed"

//go:embed *.html
var TemplateFS embed.FS
