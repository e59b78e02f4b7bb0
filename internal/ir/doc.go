// Package ir provides the constant value types carried by expression trees
// and their canonical encoding.
//
// This package imports nothing internal. Every other internal package may
// import ir; ir is the foundational layer.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64
//   - Canonical JSON follows RFC 8785 (UTF-16 key order, NFC strings)
//   - Fingerprints are SHA-256 with a domain prefix and null separator
package ir
