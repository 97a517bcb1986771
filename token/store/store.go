// Package store persists the client's credentials between runs. It plays the
// part browser local storage plays for a web client: a flat key/value space
// under fixed keys, cleared in full on logout.
package store

// Fixed keys for the credential pair
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Store is a small string key/value store. Get returns "" for absent keys.
type Store interface {
	Get(key string) string
	Set(key, value string) error
	Remove(key string) error
	Clear() error
}

// ClearTokens removes both credentials from s
func ClearTokens(s Store) error {
	if err := s.Remove(KeyAccessToken); err != nil {
		return err
	}
	return s.Remove(KeyRefreshToken)
}
