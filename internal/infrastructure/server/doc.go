// Package server assembles the web shell from configuration: storage, the
// update version manager, the web-view controller and the loopback bridge.
package server
