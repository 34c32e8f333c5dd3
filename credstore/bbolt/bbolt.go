// Package bbolt provides a BBolt-backed credential store with values sealed
// at rest using AES-256-GCM.
package bbolt

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/opencounter/posauth/credstore"
	"github.com/opencounter/posauth/internal/util"
)

var (
	bucketCreds = []byte("credentials")
	bucketMeta  = []byte("meta")
	metaKeySalt = []byte("kdf_salt")
)

const (
	saltLen = 16
	// hkdfInfo separates the sealing key from any future key derived from
	// the same install secret.
	hkdfInfo = "posauth:store:seal:v1"
)

// Store implements credstore.Store backed by a BBolt database. Values are
// sealed with a key derived from an install secret the caller provides
// (typically sourced from the OS keychain or a root-owned file), so the
// database file alone does not reveal the device token.
type Store struct {
	db      *bbolt.DB
	sealKey []byte
}

var _ credstore.Store = (*Store)(nil)

// Open opens (creating if needed) the credential database at path and
// derives the sealing key from installSecret. A fresh KDF salt is generated
// and persisted on first open; subsequent opens reuse it, so the same
// install secret always derives the same sealing key for this file.
func Open(path, installSecret string) (*Store, error) {
	if installSecret == "" {
		return nil, fmt.Errorf("install secret must not be empty")
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening credential db: %w", err)
	}

	var salt []byte
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCreds); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if existing := meta.Get(metaKeySalt); existing != nil {
			salt = util.CopyBytes(existing)
			return nil
		}
		fresh, err := util.RandomBytes(saltLen)
		if err != nil {
			return err
		}
		salt = fresh
		return meta.Put(metaKeySalt, fresh)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing credential db: %w", err)
	}

	sealKey, err := deriveSealKey(installSecret, salt)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, sealKey: sealKey}, nil
}

func deriveSealKey(installSecret string, salt []byte) ([]byte, error) {
	stretched, err := util.DeriveArgon2idKey(installSecret, salt, util.DefaultArgon2idParams())
	if err != nil {
		return nil, fmt.Errorf("stretching install secret: %w", err)
	}
	defer util.WipeBytes(stretched)

	key, err := util.HKDF(stretched, salt, []byte(hkdfInfo))
	if err != nil {
		return nil, fmt.Errorf("deriving sealing key: %w", err)
	}
	return key, nil
}

// Close wipes the sealing key and closes the database.
func (s *Store) Close() error {
	util.WipeBytes(s.sealKey)
	return s.db.Close()
}

// Get returns the value for key. A missing key, and any value that fails to
// unseal (wrong install secret, corrupt record), reads as absent — the
// corrupt record is removed so the store converges back to a clean state.
func (s *Store) Get(key string) (string, bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCreds)
		if b == nil {
			return nil
		}
		if data := b.Get([]byte(key)); data != nil {
			raw = util.CopyBytes(data)
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	if raw == nil {
		return "", false, nil
	}

	var env credstore.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		_ = s.Delete(key)
		return "", false, nil
	}
	value, err := credstore.Open(s.sealKey, key, &env)
	if err != nil {
		_ = s.Delete(key)
		return "", false, nil
	}
	defer util.WipeBytes(value)
	return string(value), true, nil
}

// Set seals and stores value under key, overwriting any previous value in a
// single transaction.
func (s *Store) Set(key, value string) error {
	env, err := credstore.Seal(s.sealKey, key, []byte(value))
	if err != nil {
		return fmt.Errorf("sealing %s: %w", key, err)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketCreds)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is a no-op, not an error.
func (s *Store) Delete(key string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCreds)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// ClearAll drops every credential. The KDF salt is kept so the sealing key
// stays stable for any values written afterwards.
func (s *Store) ClearAll() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketCreds) == nil {
			return nil
		}
		if err := tx.DeleteBucket(bucketCreds); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketCreds)
		return err
	})
	if err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}
