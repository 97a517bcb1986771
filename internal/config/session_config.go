package config

import "time"

type SessionConfig interface {
	GetRenewalMargin() time.Duration
	GetReissueTimeout() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRenewalMargin is how long before access token expiry the renewal timer fires
func (Session) GetRenewalMargin() time.Duration {
	return GetDurationEnv("SESSION_RENEWAL_MARGIN", 30*time.Second)
}

func (Session) GetReissueTimeout() time.Duration {
	return GetDurationEnv("SESSION_REISSUE_TIMEOUT", 15*time.Second)
}
