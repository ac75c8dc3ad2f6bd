package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"margin/internal/apperror"
	"margin/internal/erp"
	"margin/internal/model"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const erpDateLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// ContributorLookup fetches the ICMS contributor code of an ERP client.
type ContributorLookup func(ctx context.Context, clientID int64) (int, error)

type NormalizeInput struct {
	Record        *erp.ContractRecord
	Raw           []byte
	Company       *model.Company
	IsEndConsumer bool
	TaxIDs        []uuid.UUID
	Contributor   ContributorLookup
}

// ContractNormalizer turns an ERP contract into a validated, unsaved Contract.
type ContractNormalizer struct {
	rates RateResolver
}

func NewContractNormalizer(rates RateResolver) *ContractNormalizer {
	return &ContractNormalizer{rates: rates}
}

// fieldReader keeps the first missing ERP field so a run of reads can be
// checked once.
type fieldReader struct {
	err error
}

func readField[T any](r *fieldReader, v *T, path string) T {
	if v == nil {
		if r.err == nil {
			r.err = missingField(path)
		}
		var zero T
		return zero
	}
	return *v
}

func missingField(path string) error {
	return apperror.BadRequest("missing required ERP field '%s'", path)
}

func (n *ContractNormalizer) Normalize(ctx context.Context, in NormalizeInput) (*model.Contract, error) {
	rec := in.Record
	if rec == nil {
		return nil, apperror.BadRequest("empty ERP contract")
	}
	fields := &fieldReader{}

	if rec.Produtos == nil {
		return nil, missingField("produtos")
	}
	products := *rec.Produtos
	if len(products) == 0 {
		return nil, apperror.BadRequest("contract has no products")
	}

	ncmCode, err := singleNCM(products)
	if err != nil {
		return nil, err
	}
	ncm, err := n.rates.ResolveNCM(ctx, ncmCode)
	if err != nil {
		return nil, err
	}

	other, err := n.rates.OtherTaxes(ctx, in.Company.ProfitType, in.TaxIDs)
	if err != nil {
		return nil, err
	}

	client := lo.FromPtr(rec.Cliente)
	stateCode := readField(fields, client.Estado, "cliente.estado")
	clientID := readField(fields, client.ID, "cliente.id")
	if fields.err != nil {
		return nil, fields.err
	}

	state, err := n.rates.ResolveState(ctx, stateCode)
	if err != nil {
		return nil, err
	}
	icms, err := n.rates.ResolveICMS(ctx, state.Code, ncm.Code)
	if err != nil {
		return nil, err
	}

	contributor, err := in.Contributor(ctx, clientID)
	if err != nil {
		return nil, err
	}

	endConsumerRate := decimal.Zero
	if in.IsEndConsumer {
		endConsumerRate = ncm.PercentageEndConsumer
		if endConsumerRate.IsZero() {
			return nil, apperror.BadRequest("NCM has no end-consumer percentage")
		}
	}

	commission, err := ParseCommission(rec.Vendedor)
	if err != nil {
		return nil, err
	}

	contract := &model.Contract{
		ContractID:       readField(fields, rec.ID, "id"),
		ContractNumber:   readField(fields, rec.Identificacao, "identificacao"),
		CompanyID:        in.Company.ID,
		ClientID:         clientID,
		ClientName:       readField(fields, client.Nome, "cliente.nome"),
		ConstructionName: readField(fields, lo.FromPtr(rec.Projeto).Nome, "projeto.nome"),
		Commission:       commission,
		FreightValue:     lo.FromPtr(lo.FromPtr(rec.Valores).ValorFrete),
		StateID:          state.ID,
		NCMID:            ncm.ID,
		ICMSRateID:       icms.ID,
		OtherTaxes:       other.Total,
		TaxesConsidered:  other.Description,
		Account:          readField(fields, rec.ContaCorrente, "conta_corrente"),
		Installments:     readField(fields, rec.Parcelamento, "parcelamento"),
		Xped:             lo.CoalesceOrEmpty(lo.FromPtr(rec.Xped), "N/A"),
		IsEndConsumer:    in.IsEndConsumer,
		EndConsumerRate:  endConsumerRate,
		IsICMSTaxpayer:   contributor == 1 || contributor == 2,
		RawPayload:       datatypes.JSON(in.Raw),
	}
	delivery := readField(fields, lo.FromPtr(rec.Datas).DataPrevisaoFaturamento, "datas.data_previsao_faturamento")

	items, netCost := buildItems(fields, products)
	if fields.err != nil {
		return nil, fields.err
	}

	contract.DeliveryDate, err = time.Parse(erpDateLayout, delivery)
	if err != nil {
		return nil, apperror.BadRequest("invalid ERP field 'datas.data_previsao_faturamento': %s", delivery)
	}

	contract.NetCost = netCost
	contract.NetCostWithoutTaxes = NetCostWithoutTaxes(netCost, other.Total)
	contract.Items = items

	// Keep the resolved references so the response can be built without a reload.
	contract.Company = in.Company
	contract.State = state
	contract.NCM = ncm
	contract.ICMSRate = icms
	return contract, nil
}

// singleNCM returns the NCM code shared by every product.
func singleNCM(products []erp.ProductRecord) (string, error) {
	fields := &fieldReader{}
	codes := make([]string, 0, len(products))
	for i, p := range products {
		ref := lo.FromPtr(p.Produto)
		codes = append(codes, strings.TrimSpace(readField(fields, ref.NCM, fmt.Sprintf("produtos.%d.produto.ncm", i+1))))
	}
	if fields.err != nil {
		return "", fields.err
	}

	distinct := lo.Uniq(codes)
	if len(distinct) > 1 {
		return "", apperror.BadRequest("all products must share one NCM")
	}
	return distinct[0], nil
}

// buildItems creates one item per product, in ERP order, and returns the
// summed net value the contribution rates are relative to.
func buildItems(fields *fieldReader, products []erp.ProductRecord) ([]model.ContractItem, decimal.Decimal) {
	values := make([]decimal.Decimal, len(products))
	netCost := decimal.Zero
	for i, p := range products {
		values[i] = readField(fields, lo.FromPtr(p.Valores).ValorProdutosSemICMS,
			fmt.Sprintf("produtos.%d.valores.valor_produtos_sem_icms", i+1))
		netCost = netCost.Add(values[i])
	}

	items := make([]model.ContractItem, 0, len(products))
	for i, p := range products {
		index := i + 1
		item := model.ContractItem{
			Index:            index,
			Name:             readField(fields, lo.FromPtr(p.Tags).Produto, fmt.Sprintf("produtos.%d.tags.produto", index)),
			SaleItemID:       readField(fields, p.ID, fmt.Sprintf("produtos.%d.id", index)),
			ProductID:        readField(fields, lo.FromPtr(p.Produto).ID, fmt.Sprintf("produtos.%d.produto.id", index)),
			Quantity:         readQuantity(fields, p.Qtde, index),
			ContributionRate: ContributionRate(values[i], netCost),
		}
		items = append(items, item)
	}
	return items, netCost
}

// readQuantity only accepts whole unit counts.
func readQuantity(fields *fieldReader, v *float64, index int) int64 {
	path := fmt.Sprintf("produtos.%d.qtde", index)
	qty := readField(fields, v, path)
	if qty != math.Trunc(qty) || math.IsInf(qty, 0) {
		if fields.err == nil {
			fields.err = apperror.BadRequest("invalid ERP field '%s': quantity must be a whole number", path)
		}
		return 0
	}
	return int64(qty)
}

// NetCostWithoutTaxes removes the deducting taxes from the net cost:
// net_cost * (1 - other_taxes/100).
func NetCostWithoutTaxes(netCost, otherTaxes decimal.Decimal) decimal.Decimal {
	return netCost.Mul(decimal.NewFromInt(1).Sub(otherTaxes.Div(hundred)))
}

// ContributionRate is the share of value in total, in percent. Zero when total is not positive.
func ContributionRate(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Div(total).Mul(hundred).Round(10)
}

// ParseCommission reads the commission from the seller name convention
// "<name>_<NN,NN>%". A contract without seller has no commission.
func ParseCommission(seller *erp.SellerRecord) (decimal.Decimal, error) {
	name := "Gimi_0%"
	if seller != nil && seller.Nome != nil {
		name = *seller.Nome
	}

	sep := strings.LastIndex(name, "_")
	if sep < 0 {
		return decimal.Zero, apperror.BadRequest("invalid seller commission in %q", name)
	}
	raw := strings.TrimSpace(name[sep+1:])
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, ",", ".")

	commission, err := decimal.NewFromString(raw)
	if err != nil || commission.IsNegative() {
		return decimal.Zero, apperror.BadRequest("invalid seller commission in %q", name)
	}
	return commission, nil
}
