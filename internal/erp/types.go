package erp

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// envelope is the wrapper every iApp endpoint answers with.
type envelope struct {
	Success  *bool           `json:"success"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
	Fiscal   json.RawMessage `json:"fiscal"`
}

// ContractRecord mirrors one entry of /api/comercial/contratos/lista.
// Pointer fields stay nil when the ERP omits them or sends null.
type ContractRecord struct {
	ID            *int64           `json:"id"`
	Identificacao *string          `json:"identificacao"`
	Cliente       *ClientRecord    `json:"cliente"`
	Projeto       *ProjectRecord   `json:"projeto"`
	Datas         *DatesRecord     `json:"datas"`
	Valores       *ValuesRecord    `json:"valores"`
	Vendedor      *SellerRecord    `json:"vendedor"`
	ContaCorrente *int64           `json:"conta_corrente"`
	Parcelamento  *int64           `json:"parcelamento"`
	Xped          *string          `json:"xped"`
	Produtos      *[]ProductRecord `json:"produtos"`
}

type ClientRecord struct {
	ID     *int64  `json:"id"`
	Nome   *string `json:"nome"`
	Estado *string `json:"estado"`
}

type ProjectRecord struct {
	Nome *string `json:"nome"`
}

type DatesRecord struct {
	DataPrevisaoFaturamento *string `json:"data_previsao_faturamento"`
}

type ValuesRecord struct {
	ValorFrete           *decimal.Decimal `json:"valor_frete"`
	ValorProdutosSemICMS *decimal.Decimal `json:"valor_produtos_sem_icms"`
}

type SellerRecord struct {
	Nome *string `json:"nome"`
}

// ProductRecord is one sale item of a contract.
type ProductRecord struct {
	ID      *int64         `json:"id"` // sale item id
	Qtde    *float64       `json:"qtde"`
	Produto *ProductRef    `json:"produto"`
	Tags    *ProductTags   `json:"tags"`
	Valores *ProductValues `json:"valores"`
}

type ProductRef struct {
	ID  *int64  `json:"id"`
	NCM *string `json:"ncm"`
}

type ProductTags struct {
	Produto *string `json:"produto"`
}

type ProductValues struct {
	ValorProdutosSemICMS *decimal.Decimal `json:"valor_produtos_sem_icms"`
}

// UpdatePayload is the body of PUT /api/comercial/contratos/atualiza/{id}.
type UpdatePayload struct {
	Cliente        int64           `json:"cliente"`
	NumeroControle string          `json:"numero_controle"`
	DataEntrega    string          `json:"data_entrega"` // YYYY-MM-DD
	Xped           string          `json:"xped"`
	ContaCorrente  int64           `json:"conta_corrente"`
	Parcelamento   int64           `json:"parcelamento"`
	Produtos       []ProductUpdate `json:"produtos"`
}

type ProductUpdate struct {
	Produto       int64   `json:"produto"`
	Qtde          int64   `json:"qtde"`
	ValorUnitario float64 `json:"valor_unitario"`
	ID            int64   `json:"id"`
}
