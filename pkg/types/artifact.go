// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// RawArtifact is a fetched full-text blob plus its detected format. The
// fetch stage is the only writer; the parse stage only reads. Data is
// immutable once written to scratch storage.
type RawArtifact struct {
	// Key is the scratch-storage key (the identifier slug).
	Key string

	// Format is the detected byte format, which may differ from the
	// route's expected format.
	Format ArtifactFormat

	Data []byte
}
