// Package adapter defines the contract external database engines implement so
// the connection manager can open, ping, query and close tenant connections
// without knowing which driver sits underneath.
package adapter
