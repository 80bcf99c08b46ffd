package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Encryptor transforms values before they reach the backing store.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type rsaEncryptor struct {
	privKey *rsa.PrivateKey
	label   []byte
}

func NewRSAEncryptor(privKey *rsa.PrivateKey) Encryptor {
	return &rsaEncryptor{privKey, []byte("keys")}
}

func (e *rsaEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, &e.privKey.PublicKey, plaintext, e.label)
}

func (e *rsaEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptOAEP(sha256.New(), rand.Reader, e.privKey, ciphertext, e.label)
}

// ExportRsaPrivateKeyToPem serializes key as PKCS#8 PEM, sealed with
// PBKDF2-derived AES-GCM when a passphrase is given.
func ExportRsaPrivateKeyToPem(key *rsa.PrivateKey, passphrase string) string {
	pkcs8Bytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		panic(err)
	}
	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: pkcs8Bytes,
	}
	if passphrase == "" {
		return string(pem.EncodeToMemory(block))
	}

	salt := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		panic(err)
	}
	dk := pbkdf2.Key([]byte(passphrase), salt, 10000, 32, sha256.New)
	aesBlock, err := aes.NewCipher(dk)
	if err != nil {
		panic(err)
	}
	gcm, err := cipher.NewGCM(aesBlock)
	if err != nil {
		panic(err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		panic(err)
	}
	encryptedBlock := &pem.Block{
		Type: "ENCRYPTED PRIVATE KEY",
		Headers: map[string]string{
			"Proc-Type": "4,ENCRYPTED",
			"DEK-Info":  fmt.Sprintf("PBES2-AES256-GCM,%X", salt),
		},
		Bytes: append(nonce, gcm.Seal(nil, nonce, block.Bytes, nil)...),
	}
	return string(pem.EncodeToMemory(encryptedBlock))
}

func ParseRsaPrivateKeyFromPem(privPEM string, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(privPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the key")
	}
	buf := block.Bytes

	if strings.Contains(block.Headers["Proc-Type"], "ENCRYPTED") {
		if passphrase == "" {
			return nil, errors.New("passphrase is required to decrypt private key")
		}
		dekInfo := block.Headers["DEK-Info"]
		if !strings.HasPrefix(dekInfo, "PBES2-AES256-GCM,") {
			return nil, errors.New("unsupported encryption scheme")
		}
		salt, err := hex.DecodeString(strings.TrimPrefix(dekInfo, "PBES2-AES256-GCM,"))
		if err != nil {
			return nil, errors.New("invalid salt in DEK-Info")
		}
		dk := pbkdf2.Key([]byte(passphrase), salt, 10000, 32, sha256.New)
		aesBlock, err := aes.NewCipher(dk)
		if err != nil {
			return nil, err
		}
		gcm, err := cipher.NewGCM(aesBlock)
		if err != nil {
			return nil, err
		}
		nonceSize := gcm.NonceSize()
		if len(buf) < nonceSize {
			return nil, errors.New("invalid encrypted data length")
		}
		nonce, encryptedData := buf[:nonceSize], buf[nonceSize:]
		buf, err = gcm.Open(nil, nonce, encryptedData, nil)
		if err != nil {
			return nil, errors.Wrap(err, "decrypt private key")
		}
	} else if passphrase != "" {
		logger.Warnf("passphrase is not used, because private key is not encrypted")
	}

	privKey, err := x509.ParsePKCS8PrivateKey(buf)
	if err == nil {
		if rsaKey, ok := privKey.(*rsa.PrivateKey); ok {
			return rsaKey, nil
		}
		return nil, errors.New("key is not an RSA private key")
	}
	priv, err := x509.ParsePKCS1PrivateKey(buf)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return priv, nil
}

func ParseRsaPrivateKeyFromPath(path, passphrase string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRsaPrivateKeyFromPem(string(b), passphrase)
}

type aesEncryptor struct {
	keyEncryptor Encryptor
	keyLen       int
}

// NewAESEncryptor seals each value with a fresh AES-256-GCM data key, itself
// sealed by keyEncryptor and carried in the value header.
func NewAESEncryptor(keyEncryptor Encryptor) Encryptor {
	return &aesEncryptor{keyEncryptor, 32}
}

func (e *aesEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	key := make([]byte, e.keyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	cipherKey, err := e.keyEncryptor.Encrypt(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	headerSize := 3 + len(cipherKey) + len(nonce)
	buf := make([]byte, headerSize+len(plaintext)+aesgcm.Overhead())
	buf[0] = byte(len(cipherKey) >> 8)
	buf[1] = byte(len(cipherKey) & 0xFF)
	buf[2] = byte(len(nonce))
	p := buf[3:]
	copy(p, cipherKey)
	p = p[len(cipherKey):]
	copy(p, nonce)
	p = p[len(nonce):]
	ciphertext := aesgcm.Seal(p[:0], nonce, plaintext, nil)
	return buf[:headerSize+len(ciphertext)], nil
}

func (e *aesEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 3 {
		return nil, errors.New("misformed ciphertext: too short")
	}
	keyLen := int(ciphertext[0])<<8 + int(ciphertext[1])
	nonceLen := int(ciphertext[2])
	if 3+keyLen+nonceLen >= len(ciphertext) {
		return nil, errors.Errorf("misformed ciphertext: %d %d", keyLen, nonceLen)
	}
	ciphertext = ciphertext[3:]
	cipherKey := ciphertext[:keyLen]
	nonce := ciphertext[keyLen : keyLen+nonceLen]
	ciphertext = ciphertext[keyLen+nonceLen:]

	key, err := e.keyEncryptor.Decrypt(cipherKey)
	if err != nil {
		return nil, errors.Wrap(err, "decrypt key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

type encrypted struct {
	os  Store
	enc Encryptor
}

// NewEncrypted returns a store whose values are encrypted at rest.
func NewEncrypted(s Store, enc Encryptor) Store {
	return &encrypted{s, enc}
}

func (e *encrypted) Get(key string) ([]byte, error) {
	data, err := e.os.Get(key)
	if err != nil {
		return nil, err
	}
	plain, err := e.enc.Decrypt(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decrypt %s", key)
	}
	return plain, nil
}

func (e *encrypted) Put(key string, value []byte) error {
	sealed, err := e.enc.Encrypt(value)
	if err != nil {
		return errors.Wrapf(err, "encrypt %s", key)
	}
	return e.os.Put(key, sealed)
}

func (e *encrypted) Delete(key string) error              { return e.os.Delete(key) }
func (e *encrypted) Contains(key string) (bool, error)    { return e.os.Contains(key) }
func (e *encrypted) List(prefix string) ([]string, error) { return e.os.List(prefix) }
func (e *encrypted) Info() Info                           { return e.os.Info() }
