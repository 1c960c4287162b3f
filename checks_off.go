//go:build !shortmapcheck

package shortmap

// contractChecks is disabled in release builds; violating a caller contract
// yields undefined results. Build with -tags shortmapcheck to enable the
// assertions during development and testing.
const contractChecks = false
