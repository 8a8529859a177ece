package models

// Profile of the signed-in user as returned by the wallet backend
type Profile struct {
	FirstName string `json:"firstName" yaml:"first_name"`
	LastName  string `json:"lastName" yaml:"last_name"`
	Username  string `json:"username" yaml:"username"`
	Email     string `json:"email" yaml:"email"`

	// Stellar account keys of the user's wallet
	PublicKey string `json:"stellarPublicKey" yaml:"public_key"`
	SecretKey string `json:"stellarSecretKey" yaml:"secret_key"`
}

// Masked returns copy of the profile safe to print
func (p Profile) Masked() Profile {
	if p.SecretKey != "" {
		p.SecretKey = "********"
	}
	return p
}
