// Package embedder generates vector embeddings for document chunks.
//
// Three providers implement Embedder: Jina AI and OpenAI over HTTP, and an
// offline local provider that hashes word tokens into a fixed-size vector.
// Remote calls retry with exponential backoff; HTTP 429 surfaces as
// ErrRateLimited once retries are exhausted.
//
// # Provider Selection
//
// New picks a provider from Config.Provider. When it is empty:
//
//  1. If DOCSYNC_EMBEDDING_PROVIDER is set, use it
//  2. Else if JINA_API_KEY is set, use Jina AI
//  3. Else if OPENAI_API_KEY is set, use OpenAI
//  4. Else use the local provider
//
// # Caching
//
// Every provider consults an LRU cache keyed by the SHA-256 of the text, so
// re-embedding identical text is free:
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 10000})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	v, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: chunk.Content})
package embedder
