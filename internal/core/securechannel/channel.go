// Package securechannel 银行接口报文的对称加密通道（AES-256-GCM）。
//
// 密钥由配置的 secret 按环境经 HKDF-SHA256 派生，开发和生产环境的密钥
// 一定不同。密文格式为 base64(nonce || sealed)。
package securechannel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/chandraveer04/token-browser/internal/domain"
)

const keySize = 32

// ErrDecrypt 密钥不对、密文被篡改或格式错误
var ErrDecrypt = errors.New("securechannel: message authentication failed")

type Channel struct {
	aead cipher.AEAD
	env  domain.Environment
}

// New secret 不能为空
func New(secret []byte, env domain.Environment) (*Channel, error) {
	if len(secret) == 0 {
		return nil, errors.New("securechannel: empty secret")
	}
	key, err := deriveKey(secret, env)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securechannel: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securechannel: create gcm: %w", err)
	}
	return &Channel{aead: aead, env: env}, nil
}

func deriveKey(secret []byte, env domain.Environment) ([]byte, error) {
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, secret, nil, []byte("token-browser/"+string(env)))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("securechannel: derive key: %w", err)
	}
	return key, nil
}

func (c *Channel) Environment() domain.Environment { return c.env }

func (c *Channel) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("securechannel: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Channel) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}
