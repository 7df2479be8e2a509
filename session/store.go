package session

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/milk9111/spritebaker/framebuffer"
	bolt "go.etcd.io/bbolt"
)

const (
	DefaultOutputRoot = "output/baked"
	DefaultTargetRate = 60.0
)

var bucketName = []byte("session")

// Fixed keys, one per field.
var (
	keySource     = []byte("source")
	keyCamera     = []byte("camera")
	keySize       = []byte("texture_size")
	keyOutputRoot = []byte("output_root")
	keyTargetRate = []byte("target_rate")
)

// Config is the user's last selection. It is a plain value; Save never keeps
// a reference to it.
type Config struct {
	Source     string
	Camera     string
	Size       framebuffer.Size
	OutputRoot string
	TargetRate float64
}

func Default() Config {
	return Config{
		Size:       framebuffer.DefaultSize,
		OutputRoot: DefaultOutputRoot,
		TargetRate: DefaultTargetRate,
	}
}

// Resolver reports whether a stored object name still exists.
type Resolver interface {
	Resolve(name string) bool
}

type ResolverFunc func(name string) bool

func (f ResolverFunc) Resolve(name string) bool {
	return f(name)
}

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes every field under its own key.
func (s *Store) Save(c Config) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		buck, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		fields := []struct {
			key   []byte
			value string
		}{
			{keySource, c.Source},
			{keyCamera, c.Camera},
			{keySize, strconv.Itoa(int(c.Size))},
			{keyOutputRoot, c.OutputRoot},
			{keyTargetRate, strconv.FormatFloat(c.TargetRate, 'g', -1, 64)},
		}
		for _, f := range fields {
			if err := buck.Put(f.key, []byte(f.value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Load reads each key on its own. Missing or unparsable values fall back to
// defaults, and names the resolver does not know come back empty. A nil
// resolver accepts every name.
func (s *Store) Load(r Resolver) Config {
	c := Default()
	err := s.db.View(func(tx *bolt.Tx) error {
		buck := tx.Bucket(bucketName)
		if buck == nil {
			return nil
		}
		get := func(key []byte) (string, bool) {
			v := buck.Get(key)
			if v == nil {
				return "", false
			}
			return string(v), true
		}

		ref := func(key []byte) string {
			v, ok := get(key)
			if !ok || v == "" {
				return ""
			}
			if r != nil && !r.Resolve(v) {
				log.Printf("session: stored %s %q no longer exists", key, v)
				return ""
			}
			return v
		}
		c.Source = ref(keySource)
		c.Camera = ref(keyCamera)

		if v, ok := get(keySize); ok {
			if n, err := strconv.Atoi(v); err == nil && framebuffer.Size(n).Valid() {
				c.Size = framebuffer.Size(n)
			}
		}
		if v, ok := get(keyOutputRoot); ok && v != "" {
			c.OutputRoot = v
		}
		if v, ok := get(keyTargetRate); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
				c.TargetRate = f
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("session: load: %v", err)
		return Default()
	}
	return c
}
