package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authcore/kvstore"
)

var (
	ErrResetNotFound = errors.New("password reset record not found")
	ErrResetBackend  = errors.New("password reset backend unavailable")
)

// PasswordResetRecord maps a reset token to the account it resets.
type PasswordResetRecord struct {
	Email     string
	ExpiresAt time.Time
}

// PasswordResetStore keys records by a digest of the reset token, never the
// token itself.
type PasswordResetStore struct {
	kv     kvstore.Store
	prefix string
}

func NewPasswordResetStore(kv kvstore.Store, prefix string) *PasswordResetStore {
	if prefix == "" {
		prefix = "apr"
	}
	return &PasswordResetStore{kv: kv, prefix: prefix}
}

func (s *PasswordResetStore) key(digest string) string {
	return kvstore.Join(s.prefix, digest)
}

func (s *PasswordResetStore) Save(ctx context.Context, digest string, rec *PasswordResetRecord, ttl time.Duration) error {
	encoded, err := encodePasswordReset(rec)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key(digest), encoded, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrResetBackend, err)
	}
	return nil
}

// Take atomically removes and returns the record.
func (s *PasswordResetStore) Take(ctx context.Context, digest string) (*PasswordResetRecord, error) {
	data, err := s.kv.GetAndDelete(ctx, s.key(digest))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrResetNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrResetBackend, err)
	}
	return decodePasswordReset(data)
}

func encodePasswordReset(rec *PasswordResetRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(recordVersion1)
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt.Unix()); err != nil {
		return nil, err
	}
	if err := writeString(&buf, rec.Email); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePasswordReset(data []byte) (*PasswordResetRecord, error) {
	r := bytes.NewReader(data)
	if err := readHeader(r); err != nil {
		return nil, corrupt(err)
	}

	var expires int64
	if err := binary.Read(r, binary.BigEndian, &expires); err != nil {
		return nil, corrupt(err)
	}
	email, err := readString(r)
	if err != nil {
		return nil, corrupt(err)
	}
	if r.Len() != 0 {
		return nil, corrupt(errors.New("trailing bytes"))
	}
	return &PasswordResetRecord{Email: email, ExpiresAt: time.Unix(expires, 0)}, nil
}
