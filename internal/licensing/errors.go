package licensing

import (
	"errors"
	"fmt"
	"time"
)

// Expiry check codes.
const (
	ErrCodeExpired  = "EXPIRED"
	ErrCodeNoExpiry = "NO_EXPIRY"
)

// Manager construction and use sentinels.
var (
	ErrNoPrivateKey = errors.New("licensing: manager holds no private key")
	ErrNoPublicKey  = errors.New("licensing: manager holds no public key")
)

// ExpiryError reports a failed expiry check with a stable code.
type ExpiryError struct {
	Code      string
	LicenseID string
	ExpiredAt time.Time
}

func (e *ExpiryError) Error() string {
	if e.Code == ErrCodeNoExpiry {
		return fmt.Sprintf("license %s carries no expiry date", e.LicenseID)
	}
	return fmt.Sprintf("license %s expired at %s", e.LicenseID, e.ExpiredAt.Format(time.RFC3339))
}

// AsExpiryError unwraps err into an *ExpiryError when possible.
func AsExpiryError(err error) (*ExpiryError, bool) {
	var ee *ExpiryError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
