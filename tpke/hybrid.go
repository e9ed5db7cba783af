package tpke

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/honeybft/honeybft/crypto"
	"github.com/honeybft/honeybft/key"
)

// ErrDecryptionFailed is returned when the AES layer fails, typically on a
// wrong session key or tampered ciphertext surfacing as bad padding.
var ErrDecryptionFailed = errors.New("tpke: decryption failed")

// HybridCiphertext pairs a threshold-encrypted session key with the
// AES-256-CBC encryption of the payload under that key.
type HybridCiphertext struct {
	Key  *Ciphertext
	Data []byte
}

// EncryptBytes encrypts an arbitrary payload: a fresh 32-byte session key is
// threshold-encrypted to the master public key and the payload encrypted
// under it with AES-256-CBC.
func EncryptBytes(pub *key.DistPublic, plaintext []byte) (*HybridCiphertext, error) {
	sessionKey, err := crypto.RandomBytes(KeyLen)
	if err != nil {
		return nil, err
	}
	keyCt, err := Encrypt(pub, sessionKey)
	if err != nil {
		return nil, err
	}
	dataCt, err := aesEncrypt(sessionKey, plaintext)
	if err != nil {
		return nil, err
	}
	return &HybridCiphertext{Key: keyCt, Data: dataCt}, nil
}

// DecryptBytes recovers the payload from at least threshold decryption
// shares over the key ciphertext.
func DecryptBytes(pub *key.DistPublic, hc *HybridCiphertext, shares []*PartialDecryption) ([]byte, error) {
	sessionKey, err := CombineShares(pub, hc.Key, shares)
	if err != nil {
		return nil, err
	}
	return aesDecrypt(sessionKey, hc.Data)
}

// aesEncrypt encrypts with AES-256-CBC and PKCS#7 padding. Wire layout:
// IV(16 B) ‖ ciphertext.
func aesEncrypt(symKey, plaintext []byte) ([]byte, error) {
	if len(symKey) != KeyLen {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(symKey)
	if err != nil {
		return nil, err
	}
	iv, err := crypto.RandomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

func aesDecrypt(symKey, ciphertext []byte) ([]byte, error) {
	if len(symKey) != KeyLen {
		return nil, ErrInvalidKeyLength
	}
	if len(ciphertext) < 2*aes.BlockSize || (len(ciphertext)-aes.BlockSize)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: truncated ciphertext", ErrDecryptionFailed)
	}
	block, err := aes.NewCipher(symKey)
	if err != nil {
		return nil, err
	}
	iv := ciphertext[:aes.BlockSize]
	data := ciphertext[aes.BlockSize:]

	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryptionFailed)
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryptionFailed)
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: bad padding", ErrDecryptionFailed)
		}
	}
	return data[:len(data)-pad], nil
}
