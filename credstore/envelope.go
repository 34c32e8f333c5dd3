package credstore

import (
	"fmt"

	"github.com/opencounter/posauth/internal/util"
)

// Envelope is a sealed credential value: AES-256-GCM with the key name bound
// as AAD, so a value copied under a different key fails to open.
type Envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

const aadPrefix = "posauth:cred:v1:"

// Seal encrypts value under sealKey, bound to the credential key name.
func Seal(sealKey []byte, key string, value []byte) (*Envelope, error) {
	cipher, err := util.EncryptAESWithAAD(value, sealKey, []byte(aadPrefix+key))
	if err != nil {
		return nil, err
	}
	// util.EncryptAESWithAAD returns nonce || ciphertext.
	return &Envelope{
		Ver:        1,
		Scheme:     "aes256gcm",
		Nonce:      cipher[:12],
		Ciphertext: cipher[12:],
	}, nil
}

// Open decrypts an Envelope sealed for the given credential key name.
func Open(sealKey []byte, key string, env *Envelope) ([]byte, error) {
	if env.Ver != 1 {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Ver)
	}
	if env.Scheme != "aes256gcm" {
		return nil, fmt.Errorf("unsupported envelope scheme: %s", env.Scheme)
	}

	full := make([]byte, len(env.Nonce)+len(env.Ciphertext))
	copy(full, env.Nonce)
	copy(full[len(env.Nonce):], env.Ciphertext)

	return util.DecryptAESWithAAD(full, sealKey, []byte(aadPrefix+key))
}
