package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound = errors.New("no code on file")
	ErrInvalid  = errors.New("code mismatch")
)

const CodeTTL = 5 * time.Minute

// Store holds at most one code hash per phone.
type Store interface {
	Set(ctx context.Context, phone, hash string, ttl time.Duration) error
	Get(ctx context.Context, phone string) (string, error)
	Del(ctx context.Context, phone string) error
}

// Sender delivers the plaintext code to the phone.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

type Service struct {
	Store  Store
	Sender Sender
}

func NewService(store Store, sender Sender) *Service {
	return &Service{Store: store, Sender: sender}
}

// Issue generates a fresh 6-digit code, persists its bcrypt hash with
// the TTL (replacing any live code for the phone), then attempts
// delivery. The write is not rolled back on delivery failure.
func (s *Service) Issue(ctx context.Context, phone string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.Store.Set(ctx, phone, string(hash), CodeTTL); err != nil {
		return err
	}

	if err := s.Sender.SendOTP(ctx, phone, code); err != nil {
		log.Printf("otp delivery to %s failed: %v", phone, err)
	}
	return nil
}

// Verify checks the candidate against the stored hash. A match
// consumes the code; a mismatch leaves it on file.
func (s *Service) Verify(ctx context.Context, phone, candidate string) error {
	hash, err := s.Store.Get(ctx, phone)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) != nil {
		return ErrInvalid
	}

	if err := s.Store.Del(ctx, phone); err != nil {
		return err
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
