// Package layouts registers the built-in sheet layouts with the layout registry.
// Import this package to ensure all layouts are registered.
package layouts

// This file exists to provide a single import point.
// Each layout file uses init() to register its layout.
