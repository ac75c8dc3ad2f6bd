package erp

import (
	"testing"

	"margin/internal/apperror"
)

func fakeEnv(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestEnvCredentials(t *testing.T) {
	provider := &EnvCredentials{lookup: fakeEnv(map[string]string{
		"TOKEN_Gimi":  "t1",
		"SECRET_Gimi": "s1",
		"TOKEN_Half":  "t2",
	})}

	creds, err := provider.Credentials("Gimi")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds.Token != "t1" || creds.Secret != "s1" {
		t.Fatalf("unexpected credentials %+v", creds)
	}

	for _, company := range []string{"Half", "Unknown"} {
		if _, err := provider.Credentials(company); !apperror.Is(err, apperror.KindUnauthorized) {
			t.Fatalf("%s: expected unauthorized, got %v", company, err)
		}
	}
}
