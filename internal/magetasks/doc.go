// Package magetasks holds the build, test and lint tasks behind magefile.go.
package magetasks
