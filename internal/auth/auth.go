package auth

import (
	"context"
	"fmt"
	"strings"
)

type Identity struct {
	UserID     string
	BusinessID string
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator maps pre-shared keys to user identities. Entries
// are comma separated "key:user" or "key:user:business".
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	entries := strings.Split(spec, ",")
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 && len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:user[:business]", entry)
		}
		key := strings.TrimSpace(parts[0])
		user := strings.TrimSpace(parts[1])
		if key == "" || user == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/user", entry)
		}
		identity := Identity{UserID: user}
		if len(parts) == 3 {
			identity.BusinessID = strings.TrimSpace(parts[2])
		}
		validator.keys[key] = identity
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
