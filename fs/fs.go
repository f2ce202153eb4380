// Package appfs embeds the files shipped inside the binaries.
package appfs

import "embed"

// FS holds the SQL migrations of the credential store.
//
//go:embed migrations
var FS embed.FS
