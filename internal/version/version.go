// ABOUTME: Version information for slotstream
// ABOUTME: Product, manufacturer and version constants shown by the CLIs
package version

const (
	// Version is the release version
	Version = "0.1.0"

	// Product is the product name
	Product = "Slotstream"

	// Manufacturer identifies the authors
	Manufacturer = "Resonate Protocol"
)
