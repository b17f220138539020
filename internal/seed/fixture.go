package seed

import (
	"time"

	"github.com/shopspring/decimal"
	disputedomain "github.com/smallbiznis/disputeops/internal/dispute/domain"
)

type sample struct {
	ref           string
	processedAt   string
	transactionAt string
	affiliation   string
	merchant      string
	agency        string
	account       string
	authorization string
	acquirerRef   string
	amount        string
	issuer        string
	issuerName    string
	acquirer      string
	status        string
	cardType      string
	reasonCode    string
	reasonLabel   string
}

var samples = map[disputedomain.Category][]sample{
	disputedomain.CategoryReceivedChargeback: {
		{
			ref: "RCB-2024-001", processedAt: "2024-12-09T08:30:00Z", transactionAt: "2024-12-08T14:22:00Z",
			affiliation: "AFF001", merchant: "Commerce Plus SARL", agency: "AGE001", account: "CPT001",
			authorization: "AUTH001", acquirerRef: "WL001", amount: "1250.50",
			issuer: "BNP PARIBAS", issuerName: "BNP Paribas France", acquirer: "WORLDLINE", status: "PENDING",
			cardType: "VISA", reasonCode: "R001", reasonLabel: "Transaction non autorisée",
		},
		{
			ref: "RCB-2024-002", processedAt: "2024-12-09T09:15:00Z", transactionAt: "2024-12-07T10:05:00Z",
			affiliation: "AFF002", merchant: "Tech Solutions Ltd", agency: "AGE002", account: "CPT002",
			authorization: "AUTH002", acquirerRef: "ING002", amount: "875.25",
			issuer: "CREDIT AGRICOLE", issuerName: "Crédit Agricole Centre France", acquirer: "INGENICO", status: "PROCESSED",
			cardType: "MASTERCARD", reasonCode: "R002", reasonLabel: "Marchandise non reçue",
		},
		{
			ref: "RCB-2024-003", processedAt: "2024-12-09T10:00:00Z", transactionAt: "2024-12-06T16:40:00Z",
			affiliation: "AFF003", merchant: "Fashion Store SAS", agency: "AGE003", account: "CPT003",
			authorization: "AUTH003", acquirerRef: "AT003", amount: "450.00",
			issuer: "SOCIETE GENERALE", issuerName: "Société Générale", acquirer: "ATOS", status: "PENDING",
			cardType: "VISA", reasonCode: "R003", reasonLabel: "Montant incorrect",
		},
	},
	disputedomain.CategoryIssuedRepresentment: {
		{
			ref: "IRE-2024-001", processedAt: "2024-12-09T11:00:00Z", transactionAt: "2024-12-08T14:22:00Z",
			affiliation: "AFF001", merchant: "Commerce Plus SARL", agency: "AGE001", account: "CPT001",
			authorization: "AUTH001", acquirerRef: "WL001", amount: "1250.50",
			issuer: "BNP PARIBAS", issuerName: "BNP Paribas France", acquirer: "WORLDLINE", status: "PENDING",
			cardType: "VISA", reasonCode: "R001", reasonLabel: "Transaction non autorisée",
		},
		{
			ref: "IRE-2024-002", processedAt: "2024-12-09T12:30:00Z", transactionAt: "2024-12-05T09:12:00Z",
			affiliation: "AFF004", merchant: "Online Services Inc", agency: "AGE004", account: "CPT004",
			authorization: "AUTH004", acquirerRef: "PP004", amount: "320.75",
			issuer: "LCL", issuerName: "LCL Banque", acquirer: "PAYPAL", status: "APPROVED",
			cardType: "MASTERCARD", reasonCode: "R004", reasonLabel: "Service non conforme",
		},
	},
	disputedomain.CategoryIssuedChargeback: {
		{
			ref: "ICB-2024-001", processedAt: "2024-12-09T13:15:00Z", transactionAt: "2024-12-04T18:30:00Z",
			affiliation: "AFF005", merchant: "Digital Products SARL", agency: "AGE005", account: "CPT005",
			authorization: "AUTH005", acquirerRef: "STR005", amount: "680.90",
			issuer: "HSBC FRANCE", issuerName: "HSBC France", acquirer: "STRIPE", status: "PENDING",
			cardType: "VISA CLASSIC", reasonCode: "R005", reasonLabel: "Double débit",
		},
		{
			ref: "ICB-2024-002", processedAt: "2024-12-09T14:00:00Z", transactionAt: "2024-12-03T20:15:00Z",
			affiliation: "AFF006", merchant: "Restaurant Le Gourmet", agency: "AGE006", account: "CPT006",
			authorization: "AUTH006", acquirerRef: "SQ006", amount: "125.40",
			issuer: "BANQUE POPULAIRE", issuerName: "Banque Populaire", acquirer: "SQUARE", status: "PROCESSED",
			cardType: "CB", reasonCode: "R006", reasonLabel: "Transaction annulée",
		},
	},
	disputedomain.CategoryReceivedRepresentment: {
		{
			ref: "RRE-2024-001", processedAt: "2024-12-09T15:30:00Z", transactionAt: "2024-12-04T18:30:00Z",
			affiliation: "AFF005", merchant: "Digital Products SARL", agency: "AGE005", account: "CPT005",
			authorization: "AUTH005", acquirerRef: "STR005", amount: "680.90",
			issuer: "HSBC FRANCE", issuerName: "HSBC France", acquirer: "STRIPE", status: "ACCEPTED",
			cardType: "VISA CLASSIC", reasonCode: "R005", reasonLabel: "Double débit",
		},
	},
}

func sampleRecords(category disputedomain.Category) []*disputedomain.Record {
	rows := samples[category]
	records := make([]*disputedomain.Record, 0, len(rows))
	for _, s := range rows {
		amount := decimal.RequireFromString(s.amount)
		transactionAt := mustTime(s.transactionAt)
		records = append(records, &disputedomain.Record{
			FileReference:     s.ref,
			ProcessedAt:       mustTime(s.processedAt),
			AffiliationNumber: s.affiliation,
			MerchantName:      s.merchant,
			Agency:            s.agency,
			Account:           s.account,
			CardNetwork:       cardNetwork(s.cardType),
			CardType:          s.cardType,
			CardNumber:        "4567****1234",
			TransactionAt:     &transactionAt,
			AuthorizationCode: s.authorization,
			IssuerBank:        s.issuer,
			IssuerName:        s.issuerName,
			AcquirerBank:      s.acquirer,
			AcquirerReference: s.acquirerRef,
			AmountPresented:   disputedomain.NewAmount(amount),
			AmountOriginal:    disputedomain.NewAmount(amount),
			ReasonCode:        s.reasonCode,
			ReasonLabel:       s.reasonLabel,
			SettlementStatus:  s.status,
		})
	}
	return records
}

func cardNetwork(cardType string) string {
	switch {
	case len(cardType) >= 4 && cardType[:4] == "VISA":
		return "VISA"
	case cardType == "MASTERCARD":
		return "MASTERCARD"
	default:
		return "CB"
	}
}

func mustTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}
