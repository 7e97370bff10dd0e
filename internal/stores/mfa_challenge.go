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
	ErrChallengeNotFound = errors.New("mfa challenge not found")
	ErrChallengeBackend  = errors.New("mfa challenge backend unavailable")
)

// MFAChallenge is the stored half of a one-time code.
type MFAChallenge struct {
	Code      string
	CreatedAt time.Time
	TTL       time.Duration
}

// Expired reports whether the challenge TTL has elapsed at now.
func (c *MFAChallenge) Expired(now time.Time) bool {
	return !now.Before(c.CreatedAt.Add(c.TTL))
}

// MFAChallengeStore keys challenges by scope and subject.
type MFAChallengeStore struct {
	kv     kvstore.Store
	prefix string
}

func NewMFAChallengeStore(kv kvstore.Store, prefix string) *MFAChallengeStore {
	if prefix == "" {
		prefix = "amc"
	}
	return &MFAChallengeStore{kv: kv, prefix: prefix}
}

func (s *MFAChallengeStore) key(scope, subject string) string {
	return kvstore.Join(s.prefix, scope+":"+subject)
}

// Save replaces any outstanding challenge for the same scope and subject.
func (s *MFAChallengeStore) Save(ctx context.Context, scope, subject string, c *MFAChallenge) error {
	encoded, err := encodeMFAChallenge(c)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key(scope, subject), encoded, c.TTL); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Take atomically removes and returns the challenge.
func (s *MFAChallengeStore) Take(ctx context.Context, scope, subject string) (*MFAChallenge, error) {
	data, err := s.kv.GetAndDelete(ctx, s.key(scope, subject))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return decodeMFAChallenge(data)
}

// Discard drops an outstanding challenge without reading it.
func (s *MFAChallengeStore) Discard(ctx context.Context, scope, subject string) error {
	if err := s.kv.Delete(ctx, s.key(scope, subject)); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

func encodeMFAChallenge(c *MFAChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(recordVersion1)
	if err := binary.Write(&buf, binary.BigEndian, c.CreatedAt.UnixNano()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, int64(c.TTL)); err != nil {
		return nil, err
	}
	if err := writeString(&buf, c.Code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeMFAChallenge(data []byte) (*MFAChallenge, error) {
	r := bytes.NewReader(data)
	if err := readHeader(r); err != nil {
		return nil, corrupt(err)
	}

	var created, ttl int64
	if err := binary.Read(r, binary.BigEndian, &created); err != nil {
		return nil, corrupt(err)
	}
	if err := binary.Read(r, binary.BigEndian, &ttl); err != nil {
		return nil, corrupt(err)
	}
	code, err := readString(r)
	if err != nil {
		return nil, corrupt(err)
	}
	if r.Len() != 0 {
		return nil, corrupt(errors.New("trailing bytes"))
	}

	return &MFAChallenge{Code: code, CreatedAt: time.Unix(0, created), TTL: time.Duration(ttl)}, nil
}
