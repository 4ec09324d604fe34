// Package database provides SQLite storage for genstudio.
//
// It holds:
//   - The model registry (id, display name, average generation time)
//   - Records of stored reference images
//   - A small key/value metadata table
//
// The database uses WAL mode and creates its schema on open. An empty
// registry is seeded with DefaultModels once.
package database
