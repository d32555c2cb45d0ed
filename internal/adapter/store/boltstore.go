// Package store implements the durable document store on top of bbolt.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hsaeed3/yosemite/internal/domain"
	"github.com/hsaeed3/yosemite/internal/port"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketBlobs     = []byte("blobs")
	bucketDocChunks = []byte("doc_chunks")
	bucketMeta      = []byte("meta")
	keyStats        = []byte("store_stats")
)

var _ port.DocumentStore = (*BoltStore)(nil)

// BoltStore is the bbolt-backed document store. Identifiers come from the
// docs and chunks bucket sequences, so they are monotonic for the lifetime
// of the database file and never reused after deletion.
type BoltStore struct {
	db *bbolt.DB

	mu        sync.RWMutex
	listeners []port.ChunkListener
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocs, bucketChunks, bucketBlobs, bucketDocChunks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type docRecord struct {
	URI       string                      `json:"uri"`
	CreatedAt int64                       `json:"created_at"`
	Metadata  map[string]domain.MetaValue `json:"metadata,omitempty"`
}

type chunkRecord struct {
	DocID  uint64    `json:"doc_id"`
	Seq    int       `json:"seq"`
	Tokens []string  `json:"tokens"`
	Vector []float32 `json:"vector,omitempty"`
	Start  int       `json:"start"`
	End    int       `json:"end"`
}

type statsRecord struct {
	Docs     int `json:"docs"`
	Chunks   int `json:"chunks"`
	TokenSum int `json:"token_sum"`
}

func u64key(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}

// docChunkKey maps a document to one of its chunks as a composite key, so
// a document's chunk ids are one contiguous cursor range and chunk
// insertion stays constant-time per chunk.
func docChunkKey(docID, chunkID uint64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[:8], docID)
	binary.BigEndian.PutUint64(k[8:], chunkID)
	return k
}

// Subscribe registers a listener for chunk-removed events.
func (s *BoltStore) Subscribe(l port.ChunkListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *BoltStore) notifyRemoved(chunkIDs []uint64) {
	if len(chunkIDs) == 0 {
		return
	}
	s.mu.RLock()
	listeners := make([]port.ChunkListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, l := range listeners {
		l.ChunksRemoved(chunkIDs)
	}
}

// PutDocument stores a document and returns its assigned identifier.
func (s *BoltStore) PutDocument(doc domain.Document) (uint64, error) {
	if err := domain.ValidateMetadata(doc.Metadata); err != nil {
		return 0, err
	}

	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		seq, err := docs.NextSequence()
		if err != nil {
			return err
		}
		id = seq

		created := doc.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		rec := docRecord{
			URI:       doc.URI,
			CreatedAt: created.UnixNano(),
			Metadata:  doc.Metadata,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := docs.Put(u64key(id), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlobs).Put(docBlobKey(id), []byte(doc.Text)); err != nil {
			return err
		}
		return s.adjustStats(tx, func(st *statsRecord) { st.Docs++ })
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *BoltStore) GetDocument(id uint64) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get(u64key(id))
		if data == nil {
			return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
		}
		var rec docRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		text := tx.Bucket(bucketBlobs).Get(docBlobKey(id))
		doc = domain.Document{
			ID:        id,
			URI:       rec.URI,
			Text:      string(text),
			Metadata:  rec.Metadata,
			CreatedAt: time.Unix(0, rec.CreatedAt),
		}
		return nil
	})
	return doc, err
}

// UpdateMetadata replaces a document's metadata, the only mutation allowed
// after ingestion.
func (s *BoltStore) UpdateMetadata(id uint64, meta map[string]domain.MetaValue) error {
	if err := domain.ValidateMetadata(meta); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		data := docs.Get(u64key(id))
		if data == nil {
			return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
		}
		var rec docRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.Metadata = meta
		out, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return docs.Put(u64key(id), out)
	})
}

// PutChunk stores a chunk and returns its assigned identifier.
func (s *BoltStore) PutChunk(chunk domain.Chunk) (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketDocs).Get(u64key(chunk.DocID)) == nil {
			return fmt.Errorf("document %d: %w", chunk.DocID, domain.ErrNotFound)
		}
		chunks := tx.Bucket(bucketChunks)
		seq, err := chunks.NextSequence()
		if err != nil {
			return err
		}
		id = seq

		rec := chunkRecord{
			DocID:  chunk.DocID,
			Seq:    chunk.Seq,
			Tokens: chunk.Tokens,
			Vector: chunk.Vector,
			Start:  chunk.Start,
			End:    chunk.End,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := chunks.Put(u64key(id), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlobs).Put(u64key(id), []byte(chunk.Text)); err != nil {
			return err
		}

		if err := tx.Bucket(bucketDocChunks).Put(docChunkKey(chunk.DocID, id), nil); err != nil {
			return err
		}
		return s.adjustStats(tx, func(st *statsRecord) {
			st.Chunks++
			st.TokenSum += len(chunk.Tokens)
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *BoltStore) GetChunk(id uint64) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		chunk, err = readChunk(tx, id)
		return err
	})
	return chunk, err
}

func readChunk(tx *bbolt.Tx, id uint64) (domain.Chunk, error) {
	data := tx.Bucket(bucketChunks).Get(u64key(id))
	if data == nil {
		return domain.Chunk{}, fmt.Errorf("chunk %d: %w", id, domain.ErrNotFound)
	}
	var rec chunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Chunk{}, err
	}
	text := tx.Bucket(bucketBlobs).Get(u64key(id))
	return domain.Chunk{
		ID:     id,
		DocID:  rec.DocID,
		Seq:    rec.Seq,
		Text:   string(text),
		Tokens: rec.Tokens,
		Vector: rec.Vector,
		Start:  rec.Start,
		End:    rec.End,
	}, nil
}

// ListChunks returns a document's chunks ordered by sequence index.
func (s *BoltStore) ListChunks(docID uint64) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketDocs).Get(u64key(docID)) == nil {
			return fmt.Errorf("document %d: %w", docID, domain.ErrNotFound)
		}
		prefix := u64key(docID)
		c := tx.Bucket(bucketDocChunks).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			chunk, err := readChunk(tx, binary.BigEndian.Uint64(k[8:]))
			if err != nil {
				return err
			}
			chunks = append(chunks, chunk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })
	return chunks, nil
}

func (s *BoltStore) ListDocuments() ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		blobs := tx.Bucket(bucketBlobs)
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var rec docRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			id := binary.BigEndian.Uint64(k)
			docs = append(docs, domain.Document{
				ID:        id,
				URI:       rec.URI,
				Text:      string(blobs.Get(docBlobKey(id))),
				Metadata:  rec.Metadata,
				CreatedAt: time.Unix(0, rec.CreatedAt),
			})
			return nil
		})
	})
	return docs, err
}

// DeleteDocument removes a document and all of its chunks, then notifies
// listeners so the indices retract the removed chunk ids.
func (s *BoltStore) DeleteDocument(id uint64) error {
	var removed []uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		if docs.Get(u64key(id)) == nil {
			return fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
		}

		chunks := tx.Bucket(bucketChunks)
		blobs := tx.Bucket(bucketBlobs)
		docChunks := tx.Bucket(bucketDocChunks)

		prefix := u64key(id)
		c := docChunks.Cursor()
		var keys [][]byte
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}

		tokenSum := 0
		for _, k := range keys {
			cid := binary.BigEndian.Uint64(k[8:])
			if rec := chunks.Get(u64key(cid)); rec != nil {
				var cr chunkRecord
				if err := json.Unmarshal(rec, &cr); err == nil {
					tokenSum += len(cr.Tokens)
				}
			}
			if err := chunks.Delete(u64key(cid)); err != nil {
				return err
			}
			if err := blobs.Delete(u64key(cid)); err != nil {
				return err
			}
			if err := docChunks.Delete(k); err != nil {
				return err
			}
			removed = append(removed, cid)
		}

		if err := blobs.Delete(docBlobKey(id)); err != nil {
			return err
		}
		if err := docs.Delete(u64key(id)); err != nil {
			return err
		}
		return s.adjustStats(tx, func(st *statsRecord) {
			st.Docs--
			st.Chunks -= len(removed)
			st.TokenSum -= tokenSum
		})
	})
	if err != nil {
		return err
	}
	s.notifyRemoved(removed)
	return nil
}

func (s *BoltStore) Stats() (domain.Stats, error) {
	var st statsRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &st)
	})
	if err != nil {
		return domain.Stats{}, err
	}
	stats := domain.Stats{TotalDocs: st.Docs, TotalChunks: st.Chunks}
	if st.Chunks > 0 {
		stats.AvgChunkLen = float64(st.TokenSum) / float64(st.Chunks)
	}
	return stats, nil
}

func (s *BoltStore) adjustStats(tx *bbolt.Tx, f func(*statsRecord)) error {
	meta := tx.Bucket(bucketMeta)
	var st statsRecord
	if data := meta.Get(keyStats); data != nil {
		if err := json.Unmarshal(data, &st); err != nil {
			return err
		}
	}
	f(&st)
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return meta.Put(keyStats, data)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// docBlobKey namespaces document text away from chunk text in the blobs
// bucket; chunk keys are plain big-endian ids.
func docBlobKey(id uint64) []byte {
	k := make([]byte, 9)
	k[0] = 'd'
	binary.BigEndian.PutUint64(k[1:], id)
	return k
}
