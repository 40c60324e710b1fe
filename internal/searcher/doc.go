// Package searcher provides lexical document search over a markup corpus
// and similarity lookup over stored chunk embeddings.
//
// # Lexical Search
//
// Search builds an index of {id, title, type, path} for every document
// under a corpus root and scores each document against the query terms:
//
//	s := searcher.NewSearcher(store, emb, searcher.Config{})
//	hits, err := s.Search("./docs", "auth token", 10)
//
// A term contained in the document's id, title or type adds one point. A
// term equal to the id adds Config.ExactIDBonus, so exact id matches rank
// first. Indexes are cached per root in an expiring LRU and rebuilt after
// Config.CacheTTL; InvalidateCache drops them immediately.
//
// # Reading Documents
//
// Read scans the corpus for a document id and returns its front matter and
// body. A miss is reported with ok == false, and Suggest offers ids that
// overlap the requested one.
//
// # Chunk Matching
//
// MatchChunks embeds a free-text query and returns the nearest chunks
// stored for a project, ranked by cosine similarity.
package searcher
