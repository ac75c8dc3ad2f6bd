package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"margin/internal/apperror"

	"github.com/samber/lo"
)

// RecipientDirectory returns the e-mails of the margin administrators.
// The bearer token of the caller is forwarded to directories that need it.
type RecipientDirectory interface {
	MarginAdminEmails(ctx context.Context, bearerToken string) ([]string, error)
}

// StaticDirectory serves a fixed list, usually from MARGIN_ADMIN_EMAILS.
type StaticDirectory []string

func NewStaticDirectory(csv string) StaticDirectory {
	parts := lo.Map(strings.Split(csv, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
	return StaticDirectory(lo.Compact(parts))
}

func (d StaticDirectory) MarginAdminEmails(ctx context.Context, bearerToken string) ([]string, error) {
	return append([]string(nil), d...), nil
}

type directoryUser struct {
	Email string `json:"email"`
}

// HTTPDirectory asks the users service for accounts flagged as margin admins.
// Expected body: [{"email": "..."}].
type HTTPDirectory struct {
	url        string
	httpClient *http.Client
}

func NewHTTPDirectory(url string, timeout time.Duration) *HTTPDirectory {
	return &HTTPDirectory{url: url, httpClient: &http.Client{Timeout: timeout}}
}

func (d *HTTPDirectory) MarginAdminEmails(ctx context.Context, bearerToken string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, apperror.Internal("could not build directory request", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstream, "users directory unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.Upstream("error %d: users directory unavailable", resp.StatusCode)
	}

	var users []directoryUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, apperror.Wrap(apperror.KindUpstream, "users directory returned an unreadable body", err)
	}

	emails := lo.Map(users, func(u directoryUser, _ int) string { return u.Email })
	return lo.Compact(emails), nil
}
