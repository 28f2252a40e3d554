package codes

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a confirmation code stays valid.
const DefaultTTL = 10 * time.Minute

// Generate returns a random 6-digit confirmation code.
func Generate() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; there is no useful recovery for a booking request.
		panic(fmt.Sprintf("codes: entropy source unavailable: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// Vault tracks confirmation-code liveness in Redis so that codes expire
// after their advertised window. The code value itself stays on the
// appointment row; the vault only answers "has this code expired".
// A nil vault means no expiry is enforced.
type Vault struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVault creates a vault; ttl <= 0 falls back to DefaultTTL.
func NewVault(client *redis.Client, ttl time.Duration) *Vault {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Vault{client: client, ttl: ttl}
}

func key(appointmentID uuid.UUID) string {
	return "confirmation_code:" + appointmentID.String()
}

// Save records a freshly issued code with the vault's TTL.
func (v *Vault) Save(ctx context.Context, appointmentID uuid.UUID, code string) error {
	if v == nil {
		return nil
	}
	if err := v.client.Set(ctx, key(appointmentID), code, v.ttl).Err(); err != nil {
		return fmt.Errorf("codes: save: %w", err)
	}
	return nil
}

// Live reports whether the appointment's code is still inside its window.
// A nil vault treats every code as live.
func (v *Vault) Live(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	if v == nil {
		return true, nil
	}
	n, err := v.client.Exists(ctx, key(appointmentID)).Result()
	if err != nil {
		return false, fmt.Errorf("codes: check liveness: %w", err)
	}
	return n > 0, nil
}
