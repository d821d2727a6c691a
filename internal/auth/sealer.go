package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

const (
	sealIssuer = "legado-client"
	sealClaim  = "session"

	// DefaultSealTTL bounds a sealed blob whose token carries no expiry.
	DefaultSealTTL = 30 * 24 * time.Hour
)

// Sealer encrypts small payloads into PASETO v4.local tokens. The implicit
// assertion binds a sealed value to one installation (the device id), so a
// blob copied to another machine does not open.
type Sealer struct {
	key      paseto.V4SymmetricKey
	implicit []byte
}

// NewSealer creates a sealer from a 32-byte key.
func NewSealer(key []byte, deviceID string) (*Sealer, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("sealing key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &Sealer{key: k, implicit: []byte(deviceID)}, nil
}

// Seal encrypts payload. The result stops opening after expiresAt; a zero
// expiresAt uses DefaultSealTTL.
func (s *Sealer) Seal(payload []byte, expiresAt time.Time) string {
	now := time.Now()
	if expiresAt.IsZero() {
		expiresAt = now.Add(DefaultSealTTL)
	}

	token := paseto.NewToken()
	token.SetIssuer(sealIssuer)
	token.SetIssuedAt(now)
	token.SetExpiration(expiresAt)
	token.SetString(sealClaim, string(payload))

	return token.V4Encrypt(s.key, s.implicit)
}

// Open decrypts a sealed value. It fails for tampered, foreign or expired
// blobs.
func (s *Sealer) Open(sealed string) ([]byte, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.IssuedBy(sealIssuer))

	token, err := parser.ParseV4Local(s.key, sealed, s.implicit)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}

	payload, err := token.GetString(sealClaim)
	if err != nil {
		return nil, fmt.Errorf("sealed value has no payload: %w", err)
	}
	return []byte(payload), nil
}
