package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/hajimi/internal/domain"
)

// Principal is the authenticated identity owning the private partition.
type Principal struct {
	UID string
}

// ShortID is the writer id stamped as lastEditor in the public partition.
func (p Principal) ShortID() string {
	if len(p.UID) > 6 {
		return p.UID[:6]
	}
	return p.UID
}

// Authenticator obtains a principal. A *domain.AuthSetupError is terminal;
// any other error is transient and the next attempt may succeed.
type Authenticator interface {
	SignIn(ctx context.Context) (Principal, error)
}

// StaticAuthenticator always returns the same principal.
type StaticAuthenticator struct {
	UID string
}

func (s StaticAuthenticator) SignIn(context.Context) (Principal, error) {
	if s.UID == "" {
		return Principal{}, errors.New("static principal is empty")
	}
	return Principal{UID: s.UID}, nil
}

// Collections computes the collection path of each partition.
type Collections struct {
	AppID string
}

// DefaultAppID namespaces collections when no app id is configured.
const DefaultAppID = "default-app-id"

// Path returns the collection of p for principal.
func (c Collections) Path(p Principal, partition domain.Partition) string {
	appID := c.AppID
	if appID == "" {
		appID = DefaultAppID
	}
	if partition == domain.Public {
		return fmt.Sprintf("artifacts/%s/public/data/bookmarks", appID)
	}
	return fmt.Sprintf("artifacts/%s/users/%s/bookmarks", appID, p.UID)
}
