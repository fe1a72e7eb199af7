// Package engine implements the collection store and the transaction
// coordinator on top of the persistence, index and query packages.
//
// A Store keeps each loaded collection resident in memory, mutates it
// under a single mutex and tracks dirtiness; persistence happens on
// explicit or automatic saves, one JSON object per collection.
package engine
