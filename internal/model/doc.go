// Package model defines the data shared across the player core: the
// persisted player record and the audio devices reported by the host.
package model
