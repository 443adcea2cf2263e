//go:build tools

// Package roomchat tracks tool dependencies invoked through go generate.
package roomchat

import (
	_ "go.uber.org/mock/mockgen"
)
