// ABOUTME: Build and product identification
// ABOUTME: Used for the version command and outbound User-Agent headers
package version

const (
	Version      = "0.3.0"
	Product      = "KisanDost"
	Manufacturer = "KisanDost Collective"
)

// UserAgent identifies this client to third-party services
func UserAgent() string {
	return Product + "/" + Version
}
