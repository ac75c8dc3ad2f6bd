package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"margin/internal/apperror"
)

var testCreds = Credentials{Token: "tok", Secret: "sec"}

func TestFindContractSendsFilterAndAuthHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != contractListPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("filters"); got != "identificacao|C-100" {
			t.Errorf("unexpected filters %q", got)
		}
		if r.Header.Get("TOKEN") != "tok" || r.Header.Get("SECRET") != "sec" {
			t.Errorf("missing auth headers")
		}
		_, _ = w.Write([]byte(`{"success":true,"response":[{"id":77,"identificacao":"C-100","produtos":[]}]}`))
	}))
	defer srv.Close()

	record, raw, err := NewClient(srv.URL, 0).FindContract(context.Background(), testCreds, "C-100")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if record.ID == nil || *record.ID != 77 {
		t.Fatalf("unexpected id %v", record.ID)
	}
	if record.Produtos == nil || len(*record.Produtos) != 0 {
		t.Fatalf("expected empty product list")
	}
	if !json.Valid(raw) {
		t.Fatalf("raw snapshot is not valid json")
	}
}

func TestFindContractEmptyListIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"response":[]}`))
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, 0).FindContract(context.Background(), testCreds, "missing")
	if !apperror.Is(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSuccessFalseIsBadRequestWithERPMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"token inválido"}`))
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, 0).FindContract(context.Background(), testCreds, "C-1")
	if !apperror.Is(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if err.Error() != "token inválido" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNon2xxIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, 0).UpdateContract(context.Background(), testCreds, 1, UpdatePayload{})
	if !apperror.Is(err, apperror.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestTransportFailureIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, 0).FindClientContributor(context.Background(), testCreds, 5)
	if !apperror.Is(err, apperror.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestUpdateContractSendsPayload(t *testing.T) {
	var got UpdatePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/comercial/contratos/atualiza/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	payload := UpdatePayload{
		Cliente:        9,
		NumeroControle: "C-42",
		DataEntrega:    "2026-01-31",
		Xped:           "N/A",
		Produtos:       []ProductUpdate{{Produto: 3, Qtde: 2, ValorUnitario: 926, ID: 11}},
	}
	if err := NewClient(srv.URL, 0).UpdateContract(context.Background(), testCreds, 42, payload); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.NumeroControle != "C-42" || len(got.Produtos) != 1 || got.Produtos[0].ValorUnitario != 926 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestFindClientContributorAcceptsStringOrNumber(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"number", `{"fiscal":{"contribuinte":1}}`, 1},
		{"string", `{"fiscal":{"contribuinte":"9"}}`, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/comercial/clientes/busca/5" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			code, err := NewClient(srv.URL, 0).FindClientContributor(context.Background(), testCreds, 5)
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if code != tt.want {
				t.Fatalf("got %d want %d", code, tt.want)
			}
		})
	}
}

func TestFindClientContributorMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"fiscal":{}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).FindClientContributor(context.Background(), testCreds, 5)
	if !apperror.Is(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}
