package domain

import (
	"context"
	"strings"
	"unicode"

	"github.com/vehiclemarket/sales-system/shared/models"
)

type DocumentType string

const (
	DocumentTypeCPF DocumentType = "CPF"
	DocumentTypeCNH DocumentType = "CNH"
	DocumentTypeRG  DocumentType = "RG"
)

type Document struct {
	Type   DocumentType `json:"type"`
	Number string       `json:"number"`
}

// Buyer is the person purchasing a vehicle
type Buyer struct {
	ID         models.ID         `json:"id"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Documents  []Document        `json:"documents"`
	Timestamps models.Timestamps `json:"timestamps"`
}

// Document returns the first document of the given type
func (b Buyer) Document(docType DocumentType) (Document, bool) {
	for _, doc := range b.Documents {
		if doc.Type == docType {
			return doc, true
		}
	}
	return Document{}, false
}

// CPF returns the digits of the buyer's CPF, empty when there is none
func (b Buyer) CPF() string {
	doc, ok := b.Document(DocumentTypeCPF)
	if !ok {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, doc.Number)
}

// SplitName splits the full name at the first space
func (b Buyer) SplitName() (first, last string) {
	parts := strings.Fields(b.Name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// BuyerRepository interface
type BuyerRepository interface {
	FindByID(ctx context.Context, id models.ID) (*Buyer, error)
}
