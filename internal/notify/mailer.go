package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"mime"
	"net/smtp"
	"strings"

	"margin/internal/apperror"
	"margin/internal/erp"
	"margin/internal/model"

	"github.com/samber/lo"
)

// Notifier tells stakeholders that a contract went back to the ERP.
type Notifier interface {
	ContractReturned(ctx context.Context, contract *model.Contract, recipients []string) error
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends the HTML contract summary over SMTP.
type Mailer struct {
	cfg       SMTPConfig
	erpWebURL string
	send      sendFunc
}

func NewMailer(cfg SMTPConfig, erpWebURL string) *Mailer {
	return &Mailer{cfg: cfg, erpWebURL: erpWebURL, send: smtp.SendMail}
}

func (m *Mailer) ContractReturned(ctx context.Context, contract *model.Contract, recipients []string) error {
	to := lo.Uniq(lo.Compact(recipients))
	if len(to) == 0 {
		log.Printf("notify: no recipients for contract %s, skipping e-mail", contract.ContractNumber)
		return nil
	}

	subject := Subject(contract)
	body, err := RenderContractSummary(contract, erp.EditURL(m.erpWebURL, contract.ContractID))
	if err != nil {
		return apperror.Internal("could not render notification", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", headerValue(m.cfg.From))
	fmt.Fprintf(&msg, "To: %s\r\n", headerValue(strings.Join(to, ", ")))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.From, to, msg.Bytes()); err != nil {
		return apperror.Internal("could not send notification", err)
	}
	log.Printf("notify: contract %s summary sent to %d recipient(s)", contract.ContractNumber, len(to))
	return nil
}

// Subject is the notification subject line. ERP values are flattened to one line.
func Subject(contract *model.Contract) string {
	company := ""
	if contract.Company != nil {
		company = contract.Company.Name
	}
	return headerValue(fmt.Sprintf("Margin App - Contract %s returned (%s)", contract.ContractNumber, company))
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func headerValue(s string) string {
	return lineBreaks.Replace(s)
}

type summaryItem struct {
	Index        int
	Name         string
	Contribution string
	UnitValue    string
}

type summaryData struct {
	Number            string
	Company           string
	Client            string
	Construction      string
	State             string
	NCM               string
	Freight           string
	Commission        string
	ICMS              string
	OtherTaxes        string
	Margin            string
	NetCost           string
	NetCostNoTaxes    string
	NetCostWithMargin string
	URL               string
	Items             []summaryItem
}

var summaryTmpl = template.Must(template.New("summary").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6;">
  <h2>Contract returned successfully.</h2>
  <h3>Contract details:</h3>
  <ul style="list-style-type: none; padding: 0;">
    <li><strong>Number:</strong> {{.Number}}</li>
    <li><strong>Company:</strong> {{.Company}}</li>
    <li><strong>Client:</strong> {{.Client}}</li>
    <li><strong>Construction:</strong> {{.Construction}}</li>
    <li><strong>State:</strong> {{.State}}</li>
    <li><strong>NCM:</strong> {{.NCM}}</li>
    <li><strong>Freight:</strong> {{.Freight}}</li>
    <li><strong>Commission:</strong> {{.Commission}}</li>
    <li><strong>ICMS:</strong> {{.ICMS}}</li>
    <li><strong>Other taxes:</strong> {{.OtherTaxes}}</li>
    <li><strong>Margin:</strong> {{.Margin}}</li>
    <li><strong>Total:</strong> {{.NetCost}}</li>
    <li><strong>Total without taxes:</strong> {{.NetCostNoTaxes}}</li>
    <li><strong>Total with margin:</strong> {{.NetCostWithMargin}}</li>
  </ul>
  <a href="{{.URL}}">View contract</a>
  <h3>Contract items:</h3>
  <table style="width: 100%; border-collapse: collapse;" border="1" cellpadding="8">
    <thead>
      <tr><th>Item</th><th>Name</th><th>Contribution</th><th>Unit value</th></tr>
    </thead>
    <tbody>
    {{- range .Items}}
      <tr><td>{{.Index}}</td><td>{{.Name}}</td><td>{{.Contribution}}</td><td>{{.UnitValue}}</td></tr>
    {{- end}}
    </tbody>
  </table>
</body>
</html>
`))

// RenderContractSummary builds the HTML body of the return notification.
func RenderContractSummary(contract *model.Contract, url string) (string, error) {
	data := summaryData{
		Number:            contract.ContractNumber,
		Client:            contract.ClientName,
		Construction:      contract.ConstructionName,
		Freight:           Currency(contract.FreightValue),
		Commission:        Percent(contract.Commission),
		OtherTaxes:        Percent(contract.OtherTaxes),
		Margin:            "-",
		NetCost:           Currency(contract.NetCost),
		NetCostNoTaxes:    Currency(contract.NetCostWithoutTaxes),
		NetCostWithMargin: currencyPtr(contract.NetCostWithMargin),
		URL:               url,
	}
	if contract.Company != nil {
		data.Company = contract.Company.Name
	}
	if contract.State != nil {
		data.State = contract.State.Name
	}
	if contract.NCM != nil {
		data.NCM = contract.NCM.Code
	}
	if contract.ICMSRate != nil {
		data.ICMS = Percent(contract.ICMSRate.TotalRate())
	}
	if contract.Margin != nil {
		data.Margin = Percent(contract.Margin.Value)
	}
	for _, item := range contract.Items {
		data.Items = append(data.Items, summaryItem{
			Index:        item.Index,
			Name:         item.Name,
			Contribution: Percent(item.ContributionRate),
			UnitValue:    currencyPtr(item.UpdatedValue),
		})
	}

	var buf bytes.Buffer
	if err := summaryTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
