package erp

import (
	"os"

	"margin/internal/apperror"
)

// Credentials is the TOKEN/SECRET pair of one company in iApp.
type Credentials struct {
	Token  string
	Secret string
}

// CredentialProvider resolves ERP credentials by company name.
type CredentialProvider interface {
	Credentials(companyName string) (Credentials, error)
}

// EnvCredentials reads TOKEN_<company> and SECRET_<company>.
type EnvCredentials struct {
	lookup func(string) (string, bool)
}

func NewEnvCredentials() *EnvCredentials {
	return &EnvCredentials{lookup: os.LookupEnv}
}

func (e *EnvCredentials) Credentials(companyName string) (Credentials, error) {
	token, _ := e.lookup("TOKEN_" + companyName)
	secret, _ := e.lookup("SECRET_" + companyName)
	if token == "" || secret == "" {
		return Credentials{}, apperror.Unauthorized("credentials not configured for company %s", companyName)
	}
	return Credentials{Token: token, Secret: secret}, nil
}
