package models

import "github.com/golang-jwt/jwt/v5"

// Service roles accepted on the operator API.
const (
	RoleOperator = "operator" // humans working the admin surface
	RoleService  = "service"  // internal callers: order service, logistics ingestion
)

// ServiceClaims is the JWT payload of operator and service tokens. Tokens
// are minted out of band; this API only verifies them.
type ServiceClaims struct {
	Subject string `json:"sub_name"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}
