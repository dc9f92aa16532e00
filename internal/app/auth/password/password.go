package password

import (
	"errors"
	"fmt"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns plaintext passwords into one-way digests and checks them.
// A mismatch is (false, nil); an error means the digest could not be used.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

type Argon2id struct {
	pepper string
	params *argon2id.Params
}

func NewArgon2id(pepper string) *Argon2id {
	return &Argon2id{pepper: pepper, params: argonParams}
}

func (a *Argon2id) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain+a.pepper, a.params)
}

func (a *Argon2id) Verify(plain, digest string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain+a.pepper, digest)
}

// ErrPasswordTooLong is returned by Hash when the peppered input exceeds
// what the algorithm can digest.
var ErrPasswordTooLong = errors.New("password is too long")

// bcrypt only reads the first 72 bytes of its input.
const bcryptMaxInput = 72

type Bcrypt struct {
	pepper string
	cost   int
}

func NewBcrypt(pepper string) *Bcrypt {
	return &Bcrypt{pepper: pepper, cost: bcrypt.DefaultCost}
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	input := []byte(plain + b.pepper)
	if len(input) > bcryptMaxInput {
		return "", ErrPasswordTooLong
	}
	h, err := bcrypt.GenerateFromPassword(input, b.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b *Bcrypt) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain+b.pepper))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// New picks the hasher named by PASSWORD_ALGORITHM.
func New(algorithm, pepper string) (Hasher, error) {
	switch algorithm {
	case config.HashArgon2id, "":
		return NewArgon2id(pepper), nil
	case config.HashBcrypt:
		return NewBcrypt(pepper), nil
	default:
		return nil, fmt.Errorf("unsupported password algorithm %q", algorithm)
	}
}
