// Package runstore persists scored separation runs in a Badger database.
//
// Each Run is msgpack-encoded under the key "run:<id>". Runs can also be
// exchanged as YAML documents, which is how results produced elsewhere are
// imported.
package runstore
