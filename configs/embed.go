// Package configs provides the embedded configuration template for
// licindex.
//
// The template is embedded at build time with //go:embed so it ships in
// every distribution, source builds included. `licindex config init`
// writes it next to the binary as a starting point.
package configs

import _ "embed"

// ConfigTemplate is the annotated licindex.yaml starting point written
// by `licindex config init`.
//
//go:embed config.example.yaml
var ConfigTemplate string
