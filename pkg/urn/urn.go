// Package urn builds the stable identifiers toolup assigns to installed
// packages and binaries. It does not parse them back into their parts.
//
// # Format
//
//	urn:package:toolup/<name>/<version>
//	urn:package:toolup/<name>/<version>/<binary-name>
package urn

import "fmt"

const prefix = "urn:package:toolup/"

// Package returns the stable id for an installed package.
func Package(name, version string) string {
	return fmt.Sprintf("%s%s/%s", prefix, name, version)
}

// Binary returns the stable id for a binary owned by a package.
func Binary(pkgName, pkgVersion, binaryName string) string {
	return fmt.Sprintf("%s%s/%s/%s", prefix, pkgName, pkgVersion, binaryName)
}
