//go:build shortmapcheck

package shortmap

// contractChecks enables caller-contract assertions: putting a value that is
// already present, removing a value that is absent, or using a value outside
// [0, capacity). These are programmer errors, never recoverable, so release
// builds omit the checks entirely. Build with -tags shortmapcheck to enable.
const contractChecks = true
