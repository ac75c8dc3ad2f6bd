package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"margin/internal/apperror"
)

const (
	contractListPath   = "/api/comercial/contratos/lista"
	contractUpdatePath = "/api/comercial/contratos/atualiza/%d"
	clientFiscalPath   = "/comercial/clientes/busca/%d"

	DefaultTimeout = 10 * time.Second
)

// Gateway is the subset of the iApp API the margin pipeline uses.
type Gateway interface {
	FindContract(ctx context.Context, creds Credentials, contractNumber string) (*ContractRecord, json.RawMessage, error)
	FindClientContributor(ctx context.Context, creds Credentials, clientID int64) (int, error)
	UpdateContract(ctx context.Context, creds Credentials, contractID int64, payload UpdatePayload) error
}

// Client talks to iApp over HTTP. Calls are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FindContract returns the first contract whose identification matches, plus
// its raw JSON so callers can keep a snapshot.
func (c *Client) FindContract(ctx context.Context, creds Credentials, contractNumber string) (*ContractRecord, json.RawMessage, error) {
	params := url.Values{}
	params.Set("offset", "1")
	params.Set("page", "1")
	params.Set("filters", "identificacao|"+contractNumber)

	env, err := c.do(ctx, http.MethodGet, contractListPath+"?"+params.Encode(), creds, nil)
	if err != nil {
		return nil, nil, err
	}

	var items []json.RawMessage
	if len(env.Response) > 0 && string(env.Response) != "null" {
		if err := json.Unmarshal(env.Response, &items); err != nil {
			return nil, nil, apperror.Wrap(apperror.KindUpstream, "unexpected ERP contract list", err)
		}
	}
	if len(items) == 0 {
		return nil, nil, apperror.NotFound("contract %s not found in ERP", contractNumber)
	}

	var record ContractRecord
	if err := json.Unmarshal(items[0], &record); err != nil {
		return nil, nil, apperror.Wrap(apperror.KindBadRequest, "ERP contract has an unexpected format", err)
	}
	return &record, items[0], nil
}

// FindClientContributor returns the client's ICMS contributor code (fiscal.contribuinte).
func (c *Client) FindClientContributor(ctx context.Context, creds Credentials, clientID int64) (int, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf(clientFiscalPath, clientID), creds, nil)
	if err != nil {
		return 0, err
	}

	var fiscal struct {
		Contribuinte json.RawMessage `json:"contribuinte"`
	}
	if len(env.Fiscal) > 0 {
		if err := json.Unmarshal(env.Fiscal, &fiscal); err != nil {
			return 0, apperror.Wrap(apperror.KindUpstream, "unexpected ERP fiscal data", err)
		}
	}

	raw := strings.Trim(string(fiscal.Contribuinte), `"`)
	if raw == "" || raw == "null" {
		return 0, apperror.BadRequest("missing required ERP field 'fiscal.contribuinte'")
	}
	code, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.BadRequest("invalid ERP field 'fiscal.contribuinte': %s", raw)
	}
	return code, nil
}

func (c *Client) UpdateContract(ctx context.Context, creds Credentials, contractID int64, payload UpdatePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperror.Internal("could not encode ERP payload", err)
	}
	_, err = c.do(ctx, http.MethodPut, fmt.Sprintf(contractUpdatePath, contractID), creds, body)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, creds Credentials, body []byte) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, apperror.Internal("could not build ERP request", err)
	}
	req.Header.Set("TOKEN", creds.Token)
	req.Header.Set("SECRET", creds.Secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("erp: %s %s failed: %v", method, path, err)
		return nil, apperror.Wrap(apperror.KindUpstream, "ERP dependency unstable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("erp: %s %s answered %d", method, path, resp.StatusCode)
		return nil, apperror.Upstream("error %d: ERP dependency unstable", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return nil, apperror.Wrap(apperror.KindUpstream, "ERP returned an unreadable body", err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "ERP rejected the request"
		}
		return nil, apperror.BadRequest("%s", msg)
	}

	return &env, nil
}
