package cart

import (
	"context"
	"regexp"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrItemNotFound = errors.New("item_not_found")
	ErrUnavailable  = errors.New("product_unavailable")
	ErrEmptyCart    = errors.New("empty_cart")
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// ValidToken reports whether token can key a cart
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// Store persists carts by token
type Store interface {
	Get(ctx context.Context, token string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	// Update loads the cart, applies fn and stores the result when fn reports a change,
	// all inside one write transaction.
	Update(ctx context.Context, token string, fn func(c *Cart) (bool, error)) (*Cart, error)
	Delete(ctx context.Context, token string) error
	PurgeBefore(ctx context.Context, t time.Time) (int, error)
	Close() error
}

var cartsBucket = []byte("carts")

// BoltStore keeps carts in a single bbolt file
type BoltStore struct {
	db *bbolt.DB
}

func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open cart store")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cartsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init cart store")
	}
	return &BoltStore{db: db}, nil
}

func loadCart(b *bbolt.Bucket, token string) (*Cart, error) {
	c := New(token)
	if data := b.Get([]byte(token)); data != nil {
		if err := json.Unmarshal(data, c); err != nil {
			return nil, errors.Wrap(err, "load cart")
		}
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

func putCart(b *bbolt.Bucket, c *Cart) error {
	c.UpdatedAt = time.Now()
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	return b.Put([]byte(c.Token), data)
}

// Get returns the stored cart or a new empty one
func (s *BoltStore) Get(_ context.Context, token string) (*Cart, error) {
	if !ValidToken(token) {
		return nil, ErrInvalidToken
	}
	var c *Cart
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		c, err = loadCart(tx.Bucket(cartsBucket), token)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *BoltStore) Save(_ context.Context, c *Cart) error {
	if !ValidToken(c.Token) {
		return ErrInvalidToken
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putCart(tx.Bucket(cartsBucket), c)
	})
}

func (s *BoltStore) Update(_ context.Context, token string, fn func(c *Cart) (bool, error)) (*Cart, error) {
	if !ValidToken(token) {
		return nil, ErrInvalidToken
	}
	var c *Cart
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(cartsBucket)
		var err error
		if c, err = loadCart(b, token); err != nil {
			return err
		}
		changed, err := fn(c)
		if err != nil || !changed {
			return err
		}
		return putCart(b, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *BoltStore) Delete(_ context.Context, token string) error {
	if !ValidToken(token) {
		return ErrInvalidToken
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(cartsBucket).Delete([]byte(token))
	})
}

// PurgeBefore drops carts not touched since t
func (s *BoltStore) PurgeBefore(_ context.Context, t time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(cartsBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var c struct {
				UpdatedAt time.Time `json:"updatedAt"`
			}
			if err := json.Unmarshal(v, &c); err != nil || c.UpdatedAt.Before(t) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
