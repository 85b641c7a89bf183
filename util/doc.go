// Package util provides small generic helpers shared by the httpapi packages:
// optional-field pointers, sorted map keys, size parsing and header redaction.
package util
