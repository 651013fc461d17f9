// Package cryptostore implements the encrypted cache I/O primitive (C7):
// password-derived symmetric encryption for the small set of sensitive YAML
// blobs (the index-to-IP reverse map chief among them). Callers use
// LoadBytes/SaveBytes; the on-disk format is a single opaque byte stream.
package cryptostore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"

	"github.com/dandi/s3logextraction/pkg/apperr"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// passwordEnvVar is the environment variable the operator sets the cache
// encryption passphrase in.
const passwordEnvVar = "S3LOGEXTRACTION_PASSWORD"

// Password resolves the encryption passphrase from the environment. An empty
// passphrase is rejected: encrypting sensitive IP data under a known-empty
// key would be worse than refusing to run.
func Password() (string, error) {
	password := os.Getenv(passwordEnvVar)
	if password == "" {
		return "", apperr.ConfigError("password", "S3LOGEXTRACTION_PASSWORD is not set").
			WithMetadata("env_var", passwordEnvVar)
	}
	return password, nil
}

func deriveKey(password string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, apperr.New("CRYPTO_KEY_DERIVATION_FAILED", "cryptostore", "derive_key", "scrypt key derivation failed").Wrap(err)
	}
	return key, nil
}

// Encrypt seals plaintext under password, returning salt||nonce||ciphertext
// (ciphertext includes the GCM authentication tag).
func Encrypt(password string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, apperr.New("CRYPTO_RAND_FAILED", "cryptostore", "encrypt", "failed to read random salt").Wrap(err)
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperr.New("CRYPTO_CIPHER_FAILED", "cryptostore", "encrypt", "failed to construct AES cipher").Wrap(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.New("CRYPTO_CIPHER_FAILED", "cryptostore", "encrypt", "failed to construct GCM mode").Wrap(err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, apperr.New("CRYPTO_RAND_FAILED", "cryptostore", "encrypt", "failed to read random nonce").Wrap(err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt reverses Encrypt. An empty input decrypts to an empty byte slice
// (callers treat that as an empty mapping, not an error).
func Decrypt(password string, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < saltSize+nonceSize {
		return nil, apperr.New("CRYPTO_MALFORMED_PAYLOAD", "cryptostore", "decrypt", "encrypted payload is shorter than salt+nonce")
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperr.New("CRYPTO_CIPHER_FAILED", "cryptostore", "decrypt", "failed to construct AES cipher").Wrap(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.New("CRYPTO_CIPHER_FAILED", "cryptostore", "decrypt", "failed to construct GCM mode").Wrap(err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, apperr.New("CRYPTO_AUTHENTICATION_FAILED", "cryptostore", "decrypt", "authentication failed; wrong password or corrupted file").Wrap(err)
	}
	return plaintext, nil
}

// LoadBytes reads and decrypts path. A missing or empty file yields nil, nil
// (an empty mapping), not an error.
func LoadBytes(password, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.New("CRYPTO_READ_FAILED", "cryptostore", "load_bytes", "could not read encrypted file").
			WithMetadata("path", path).Wrap(err)
	}
	return Decrypt(password, data)
}

// SaveBytes encrypts plaintext and writes it to path atomically (write to a
// sibling temp file, then rename) so a concurrent reader never observes a
// partially written file (spec §5(c)).
func SaveBytes(password, path string, plaintext []byte) error {
	ciphertext, err := Encrypt(password, plaintext)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.New("CRYPTO_WRITE_FAILED", "cryptostore", "save_bytes", "could not create parent directory").
			WithMetadata("path", path).Wrap(err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperr.New("CRYPTO_WRITE_FAILED", "cryptostore", "save_bytes", "could not create temp file").
			WithMetadata("path", path).Wrap(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.New("CRYPTO_WRITE_FAILED", "cryptostore", "save_bytes", "could not write temp file").
			WithMetadata("path", path).Wrap(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.New("CRYPTO_WRITE_FAILED", "cryptostore", "save_bytes", "could not fsync temp file").
			WithMetadata("path", path).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperr.New("CRYPTO_WRITE_FAILED", "cryptostore", "save_bytes", "could not close temp file").
			WithMetadata("path", path).Wrap(err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperr.New("CRYPTO_WRITE_FAILED", "cryptostore", "save_bytes", "could not rename temp file into place").
			WithMetadata("path", path).Wrap(fmt.Errorf("%w", err))
	}
	return nil
}
