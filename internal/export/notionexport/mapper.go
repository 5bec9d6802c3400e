package notionexport

import (
	"time"

	"github.com/dvloznov/smart-finance/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the transactions database.
const (
	PropName          = "Name"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropAccount       = "Account"
	PropMerchant      = "Merchant"
	PropMood          = "Mood"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

// TransactionToProperties maps a transaction to page properties.
// accountName replaces the account ID when known. Amount is signed so a
// database sum gives the net flow.
func TransactionToProperties(tx domain.Transaction, accountName string) notionapi.Properties {
	title := tx.Description
	if title == "" {
		title = tx.Category
	}
	if accountName == "" {
		accountName = tx.AccountID
	}

	amount, _ := tx.SignedAmount().Float64()
	date := notionapi.Date(time.Date(tx.Date.Year, tx.Date.Month, tx.Date.Day, 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		PropName:          notionapi.TitleProperty{Title: richText(title)},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		PropDate:          notionapi.DateProperty{Date: &notionapi.DateObject{Start: &date}},
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}},
	}
	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if accountName != "" {
		props[PropAccount] = notionapi.SelectProperty{Select: notionapi.Option{Name: accountName}}
	}
	if tx.Merchant != "" {
		props[PropMerchant] = notionapi.RichTextProperty{RichText: richText(tx.Merchant)}
	}
	if tx.Mood != "" {
		props[PropMood] = notionapi.RichTextProperty{RichText: richText(tx.Mood)}
	}
	return props
}

// extractTransactionID reads the Transaction ID property of a page returned
// by the API. Returns "" when absent.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties[PropTransactionID]
	if !ok {
		return ""
	}
	var rt []notionapi.RichText
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		rt = p.RichText
	case notionapi.RichTextProperty:
		rt = p.RichText
	}
	if len(rt) == 0 {
		return ""
	}
	if rt[0].PlainText != "" {
		return rt[0].PlainText
	}
	if rt[0].Text != nil {
		return rt[0].Text.Content
	}
	return ""
}
