package flows

import "time"

// TokenExpiry computes when an access token expires. A positive expiresIn
// (seconds) wins; otherwise claimExpiry is consulted. A zero time means the
// expiry is unknown.
func TokenExpiry(now time.Time, expiresIn int64, accessToken string, claimExpiry func(string) (time.Time, error)) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	if claimExpiry == nil || accessToken == "" {
		return time.Time{}
	}
	exp, err := claimExpiry(accessToken)
	if err != nil {
		return time.Time{}
	}
	return exp
}
