package bridge

import "time"

// Credentials is one temporary credential bundle as seen by the client.
// BucketPatterns carry the authorization scope so storage calls can be
// checked locally before any network round trip.
type Credentials struct {
	ServiceID      string
	AccessKey      string
	SecretKey      string
	SessionToken   string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	BucketPatterns []string
}
