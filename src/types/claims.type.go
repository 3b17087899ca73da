package types

import "github.com/golang-jwt/jwt/v5"

type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (c AdminClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetExpirationTime()
}
func (c AdminClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetIssuedAt()
}
func (c AdminClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return c.RegisteredClaims.GetNotBefore()
}
func (c AdminClaims) GetIssuer() (string, error) {
	return c.RegisteredClaims.GetIssuer()
}
func (c AdminClaims) GetSubject() (string, error) {
	return c.RegisteredClaims.GetSubject()
}
func (c AdminClaims) GetAudience() (jwt.ClaimStrings, error) {
	return c.RegisteredClaims.GetAudience()
}
