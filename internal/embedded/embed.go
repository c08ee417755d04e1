// Package embedded carries data compiled into the binary.
package embedded

import (
	"embed"
)

// FS embeds the bundled seed feed used when every live source and the
// snapshot are unavailable.
//
//go:embed seed/*.json
var FS embed.FS

// SeedPath is the path of the seed feed within FS.
const SeedPath = "seed/aa-models.json"
