package web

import "embed"

// StaticFS holds the embedded widget stylesheet.
//
//go:embed static/*
var StaticFS embed.FS

// Stylesheet returns the embedded widget stylesheet.
func Stylesheet() ([]byte, error) {
	return StaticFS.ReadFile("static/" + StylesheetName)
}
