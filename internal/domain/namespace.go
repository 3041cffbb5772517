package domain

import "fmt"

// Namespace locates a collection inside a logical database on the shared store.
//
// Key layout:
//
//	<prefix>db:<database>                       registry hash
//	<prefix><database>:<collection>:idx         FT index
//	<prefix><database>:<collection>:chunk:<id>  chunk hash
type Namespace struct {
	Prefix     string
	Database   string
	Collection string
}

// WithCollection returns a copy pointing at another collection of the same database.
func (n Namespace) WithCollection(name string) Namespace {
	n.Collection = name
	return n
}

// RegistryKey is the hash marking the logical database as created.
func (n Namespace) RegistryKey() string {
	return fmt.Sprintf("%sdb:%s", n.Prefix, n.Database)
}

// IndexName is the FT index of the collection.
func (n Namespace) IndexName() string {
	return fmt.Sprintf("%s%s:%s:idx", n.Prefix, n.Database, n.Collection)
}

// ChunkPrefix is the key prefix covered by the collection index.
func (n Namespace) ChunkPrefix() string {
	return fmt.Sprintf("%s%s:%s:chunk:", n.Prefix, n.Database, n.Collection)
}

// ChunkKey is the hash key of a single chunk.
func (n Namespace) ChunkKey(id string) string {
	return n.ChunkPrefix() + id
}
