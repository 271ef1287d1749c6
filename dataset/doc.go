// Package dataset downloads, unpacks and caches the speech and room
// impulse response corpora used by the separation study, and synthesizes
// reverberant multichannel mixtures from them.
//
// Every Prepare function is idempotent: archives are fetched only when
// missing, unpacked only when a marker file is missing, and cache files,
// named after the parameters that produced them, are built only when
// absent. Caches are never validated against their inputs; delete a cache
// file to rebuild it.
package dataset
