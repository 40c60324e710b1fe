// Package storage provides SQLite-based persistence for synced documents
// and their chunk embeddings.
//
// # Database Schema
//
// Tables:
//   - documents: one row per (project_id, file_path) with content, checksum
//     and a version that advances only when the checksum changes
//   - chunk_embeddings: one row per (document_id, chunk_hash) holding the
//     chunk text, its vector blob and JSON metadata
//   - schema_version: applied migrations
//
// Embeddings reference their document with ON DELETE CASCADE, so deleting
// a document removes everything stored for it.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.docsync/docsync.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	doc := &storage.Document{ProjectID: "docs", FilePath: "a.md", Content: body, Checksum: sum}
//	if err := store.UpsertDocument(ctx, doc); err != nil {
//	    return err
//	}
//
// # Drivers
//
// The default build uses the pure Go modernc.org/sqlite driver. Building
// with -tags sqlite_cgo switches to github.com/mattn/go-sqlite3. Vector
// similarity is computed in Go in both cases, so results are identical.
//
// # Concurrency
//
// The connection pool is limited to one connection and the database runs
// in WAL mode. All methods are safe for concurrent use.
package storage
