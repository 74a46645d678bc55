// Package cipher implements the AES-256-CBC frame codec used to encrypt
// repository files and block-delta super blocks. Two framings are
// supported: salted, which prefixes the ciphertext with an 8-byte magic
// and an 8-byte salt (the OpenSSL "Salted__" convention), and raw, which
// has no header because the salt is carried out of band (in a
// block-map entry).
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

const (
	keySize   = 32 // AES-256
	blockSize = aes.BlockSize
	saltSize  = 8

	// magicSalted is the 8-byte marker OpenSSL's enc utility writes ahead
	// of the salt in its "Salted__" header convention.
	magicSalted = "Salted__"
)

// ErrMalformedFrame is returned when a salted frame is shorter than its
// header, or ciphertext isn't a multiple of the block size.
var ErrMalformedFrame = errors.New("cipher: malformed frame")

// ErrBadPadding is returned when PKCS#7 unpadding finds an invalid pad.
var ErrBadPadding = errors.New("cipher: bad padding")

// deriveKeyIV implements OpenSSL's EVP_BytesToKey with MD5: repeatedly
// hash the previous digest concatenated with the passphrase and salt
// until enough bytes exist for a 32-byte key and a 16-byte IV.
func deriveKeyIV(passphrase []byte, salt []byte) (key, iv []byte) {
	need := keySize + blockSize
	var out []byte
	var prev []byte
	for len(out) < need {
		h := md5.New()
		h.Write(prev)
		h.Write(passphrase)
		h.Write(salt)
		prev = h.Sum(nil)
		out = append(out, prev...)
	}
	return out[:keySize], out[keySize : keySize+blockSize]
}

func pkcs7Pad(data []byte) []byte {
	pad := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+pad)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(pad)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrBadPadding
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, ErrBadPadding
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, ErrBadPadding
		}
	}
	return data[:len(data)-pad], nil
}

// EncryptSalted encrypts plaintext with a random 8-byte salt and returns a
// frame prefixed with the "Salted__" header, matching the format the
// `pgbackrest` wire protocol uses for standalone encrypted files.
func EncryptSalted(passphrase, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("cipher: salt: %w", err)
	}

	ciphertext, err := encryptRaw(passphrase, salt, plaintext)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, len(magicSalted)+saltSize+len(ciphertext))
	frame = append(frame, magicSalted...)
	frame = append(frame, salt...)
	frame = append(frame, ciphertext...)
	return frame, nil
}

// DecryptSalted reverses EncryptSalted, validating the header magic.
func DecryptSalted(passphrase, frame []byte) ([]byte, error) {
	if len(frame) < len(magicSalted)+saltSize {
		return nil, ErrMalformedFrame
	}
	if string(frame[:len(magicSalted)]) != magicSalted {
		return nil, ErrMalformedFrame
	}
	salt := frame[len(magicSalted) : len(magicSalted)+saltSize]
	ciphertext := frame[len(magicSalted)+saltSize:]
	return decryptRaw(passphrase, salt, ciphertext)
}

// EncryptRaw encrypts plaintext under a caller-supplied salt with no
// header, for block-delta super blocks whose salt is already recorded in
// the block map.
func EncryptRaw(passphrase, salt, plaintext []byte) ([]byte, error) {
	return encryptRaw(passphrase, salt, plaintext)
}

// DecryptRaw reverses EncryptRaw.
func DecryptRaw(passphrase, salt, ciphertext []byte) ([]byte, error) {
	return decryptRaw(passphrase, salt, ciphertext)
}

func encryptRaw(passphrase, salt, plaintext []byte) ([]byte, error) {
	key, iv := deriveKeyIV(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	padded := pkcs7Pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, iv)
	cbc.CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func decryptRaw(passphrase, salt, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, ErrMalformedFrame
	}
	key, iv := deriveKeyIV(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	padded := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, iv)
	cbc.CryptBlocks(padded, ciphertext)
	return pkcs7Unpad(padded)
}
