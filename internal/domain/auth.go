package domain

// TokenVerifier validates a token issued by the identity collaborator and
// extracts the verified, opaque user identifier. The core performs no
// authentication beyond this.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}
