package services

import (
	"strings"

	"eventpass/internal/status"

	"github.com/goccy/go-json"
)

type qrPayload struct {
	Secret string `json:"s"`
	Type   string `json:"type"`
}

// ParseQRPayload extracts the redemption secret from a scanned code. The code is either the bare
// secret or a JSON object {"s": "<secret>", "type": "<ticket type>"}; the "s" field wins when
// the payload is JSON.
func ParseQRPayload(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", status.ErrInvalidPayload
	}

	if strings.HasPrefix(raw, "{") {
		var p qrPayload
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			secret := strings.TrimSpace(p.Secret)
			if secret == "" {
				return "", status.ErrInvalidPayload
			}
			return secret, nil
		}
	}

	return raw, nil
}
