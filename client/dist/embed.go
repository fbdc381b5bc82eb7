package clientdist

import _ "embed"

// WebliskJS is the browser runtime bundle.
//
// It is served by the framework at "/_weblisk/client.js".
//go:embed weblisk.js
var WebliskJS []byte
