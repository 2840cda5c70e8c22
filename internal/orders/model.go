// Package orders implements the order lifecycle: checkout, courier
// assignment, status progression and the delivered notification.
package orders

import (
	"time"

	"github.com/edostavka/backend/internal/airtable"
)

// Column names of the orders table.
const (
	fieldNumber     = "номер заказа"
	fieldCustomer   = "Table 1"
	fieldProducts   = "составляющие"
	fieldQuantities = "колво товаров"
	fieldTotal      = "сумма заказа"
	fieldETA        = "время на доставку"
	fieldStatus     = "статус"
	fieldAddress    = "адрес"
	fieldCreated    = "дата заказа"
	fieldEmployees  = "работники"
)

// Order is the customer-facing view of an order row.
type Order struct {
	ID     string `json:"id"`
	Number string `json:"orderNumber"`
	// ProductsText is the encoded quantities column, shown as-is.
	ProductsText string    `json:"products"`
	TotalAmount  float64   `json:"totalAmount"`
	ETAMinutes   int       `json:"deliveryTime"`
	Status       Status    `json:"status"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"createdAt"`
	EmployeeIDs  []string  `json:"employeeIds,omitempty"`
}

// ProductInfo is one line of an order as the courier sees it.
type ProductInfo struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	ImageURL         string  `json:"imageUrl"`
	Barcode          string  `json:"barcode"`
	Quantity         float64 `json:"quantity"`
	WeightMode       string  `json:"weightStatus,omitempty"`
	WeightPerPieceKG float64 `json:"weightPerPiece,omitempty"`
	Weight           string  `json:"weight,omitempty"`
}

// FullDetails extends Order with resolved product lines for the
// employee flow and the delivered notification.
type FullDetails struct {
	Order
	Products   []ProductInfo `json:"productsInfo"`
	CustomerID string        `json:"customerId"`
}

func orderFromRecord(record airtable.Record) Order {
	fields := record.Fields
	return Order{
		ID:           record.ID,
		Number:       fields.String(fieldNumber),
		ProductsText: fields.String(fieldQuantities),
		TotalAmount:  fields.Float(fieldTotal),
		ETAMinutes:   fields.Int(fieldETA),
		Status:       Status(fields.String(fieldStatus)),
		Address:      fields.String(fieldAddress),
		CreatedAt:    record.CreatedTime,
		EmployeeIDs:  fields.StringSlice(fieldEmployees),
	}
}
