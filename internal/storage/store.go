package storage

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var baseCollections = []string{QuizSubmissions, ProgressUpdates, CachedLessons, Lessons}

// Store is a durable key-value store backed by bbolt. Each collection is an
// independent bucket; every operation runs in its own short-lived transaction,
// so no cross-collection atomicity is provided.
//
// A Store must be opened before use; operations issued earlier fail with
// ErrNotReady.
type Store struct {
	path    string
	timeout time.Duration

	mu sync.RWMutex
	db *bolt.DB
}

func New(path string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	return &Store{path: path, timeout: timeout}
}

// Open opens the database file and creates the base collections if absent.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		return storageErr("open", "", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, collection := range baseCollections {
			if _, createErr := tx.CreateBucketIfNotExists([]byte(collection)); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return storageErr("create collections", "", err)
	}

	s.db = db
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) ready() (*bolt.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotReady
	}
	return s.db, nil
}

// Put upserts record under id in the named collection.
func (s *Store) Put(collection, id string, record any) error {
	db, err := s.ready()
	if err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return storageErr("put", collection, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b, createErr := tx.CreateBucketIfNotExists([]byte(collection))
		if createErr != nil {
			return createErr
		}
		return b.Put([]byte(id), data)
	})
	return storageErr("put", collection, err)
}

// Get unmarshals the record for id into out. A missing key is not an error;
// the first return value reports whether the record was found.
func (s *Store) Get(collection, id string, out any) (bool, error) {
	db, err := s.ready()
	if err != nil {
		return false, err
	}

	found := false
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, out)
	})
	if err != nil {
		return false, storageErr("get", collection, err)
	}
	return found, nil
}

// GetAll returns the raw records of a collection. Iteration order of the
// underlying bucket is key order, but callers must not rely on it.
func (s *Store) GetAll(collection string) ([][]byte, error) {
	db, err := s.ready()
	if err != nil {
		return nil, err
	}

	var records [][]byte
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_ []byte, v []byte) error {
			records = append(records, append([]byte(nil), v...))
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("get all", collection, err)
	}
	return records, nil
}

// Delete removes the record for id. Deleting a missing id is not an error.
func (s *Store) Delete(collection, id string) error {
	db, err := s.ready()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
	return storageErr("delete", collection, err)
}

// EnsureCollection creates the named collection if it does not exist.
func (s *Store) EnsureCollection(collection string) error {
	db, err := s.ready()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists([]byte(collection))
		return createErr
	})
	return storageErr("ensure", collection, err)
}

// DropCollection deletes the named collection and all its records.
func (s *Store) DropCollection(collection string) error {
	db, err := s.ready()
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(collection)) == nil {
			return nil
		}
		return tx.DeleteBucket([]byte(collection))
	})
	return storageErr("drop", collection, err)
}

// CollectionNames lists every collection currently present.
func (s *Store) CollectionNames() ([]string, error) {
	db, err := s.ready()
	if err != nil {
		return nil, err
	}

	var names []string
	err = db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, storageErr("list collections", "", err)
	}
	sort.Strings(names)
	return names, nil
}

// SaveSubmission stores a queued submission in the collection for its tag's
// queue. The record is keyed by its id.
func (s *Store) SaveSubmission(collection string, sub *QueuedSubmission) error {
	return s.Put(collection, sub.ID, sub)
}

// GetSubmissions returns all queued submissions in a collection.
func (s *Store) GetSubmissions(collection string) ([]*QueuedSubmission, error) {
	raw, err := s.GetAll(collection)
	if err != nil {
		return nil, err
	}

	subs := make([]*QueuedSubmission, 0, len(raw))
	for _, data := range raw {
		var sub QueuedSubmission
		if err := json.Unmarshal(data, &sub); err != nil {
			return nil, storageErr("decode", collection, err)
		}
		subs = append(subs, &sub)
	}
	return subs, nil
}

// SaveCachedLesson stores downloaded lesson content, overwriting any previous
// copy.
func (s *Store) SaveCachedLesson(lesson *CachedLesson) error {
	return s.Put(CachedLessons, lesson.ID, lesson)
}

// GetCachedLesson returns the cached content for a lesson, if present.
func (s *Store) GetCachedLesson(id string) (*CachedLesson, bool, error) {
	var lesson CachedLesson
	found, err := s.Get(CachedLessons, id, &lesson)
	if err != nil || !found {
		return nil, false, err
	}
	return &lesson, true, nil
}

// SaveLesson stores catalog metadata for a lesson.
func (s *Store) SaveLesson(lesson *Lesson) error {
	return s.Put(Lessons, lesson.ID, lesson)
}

// GetAllLessons returns the lesson catalog sorted by title.
func (s *Store) GetAllLessons() ([]*Lesson, error) {
	raw, err := s.GetAll(Lessons)
	if err != nil {
		return nil, err
	}

	lessons := make([]*Lesson, 0, len(raw))
	for _, data := range raw {
		var lesson Lesson
		if err := json.Unmarshal(data, &lesson); err != nil {
			return nil, storageErr("decode", Lessons, err)
		}
		lessons = append(lessons, &lesson)
	}
	sort.Slice(lessons, func(i, j int) bool {
		return lessons[i].Title < lessons[j].Title
	})
	return lessons, nil
}
