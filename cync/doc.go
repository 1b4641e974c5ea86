// Package cync implements a client for the cloud-mediated TCP/TLS protocol
// used to control GE Cync (formerly C by GE) smart lighting over its
// Bluetooth mesh: frame codecs, packet builders and parsers, the device/
// room/group/home topology model, and a Session/Client pair that manages
// the long-lived connection and exposes a fire-and-forget command surface.
package cync
