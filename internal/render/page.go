package render

import _ "embed"

// StatusPage is the built-in status page template.
//
//go:embed status.html
var StatusPage string
