// Package static embeds the stylesheet and chart script served under
// /static/.
package static

import "embed"

//go:embed dashboard.css dashboard.js
var FS embed.FS
