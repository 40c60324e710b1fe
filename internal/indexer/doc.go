// Package indexer keeps stored chunk embeddings in step with document content.
//
// # Basic Usage
//
//	idx := indexer.New(store, chunker.NewDefault(), emb, indexer.DefaultConfig())
//
//	res, err := idx.SyncDocument(ctx, "docs", "guides/setup.md", "Setup", content)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("version %d: %d indexed, %d reused\n",
//	    res.Document.Version, res.ChunksIndexed, res.ChunksReused)
//
// # Sync Pipeline
//
// SyncDocument runs these steps:
//
//  1. Checksum: a document whose SHA-256 matches the stored checksum returns
//     immediately with zero counts
//  2. Upsert: the document row is written; a failure aborts the sync
//  3. Chunk: the chunker splits the content and each chunk is fingerprinted
//  4. Diff: stored chunk hashes are partitioned into kept and orphaned
//  5. Delete: all orphans are removed in one batch
//  6. Embed: each new chunk is embedded and inserted, one at a time
//
// Embedding failures are logged and skip only the affected chunk. The next
// sync of changed content re-embeds whatever is missing, since the diff is
// by hash.
//
// # Rate Limiting
//
// Embedding calls share one rate.Limiter with burst 1, so consecutive calls
// are spaced by Config.EmbedDelay even across concurrent syncs.
//
// # Directory Sync
//
// SyncDirectory walks a tree and syncs every regular UTF-8 file up to
// MaxFileSize. Hidden directories, node_modules and vendor are skipped.
// Files are synced by a bounded errgroup; only one directory sync per
// project may run at a time.
package indexer
