package erp

import (
	"fmt"
	"strings"
)

// DefaultWebURL is the iApp front-end used to build contract links.
const DefaultWebURL = "https://iapp.iniciativaaplicativos.com.br"

// EditURL links to the contract edit page of the iApp front-end.
func EditURL(webURL string, contractID int64) string {
	return fmt.Sprintf("%s/comercial/contratos/editar?id=%d", strings.TrimRight(webURL, "/"), contractID)
}
