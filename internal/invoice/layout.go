// Package invoice turns a committed order into a paginated PDF. Layout is
// computed as a plain Document first so the content can be checked
// without parsing PDF bytes.
package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/aq2208/gorder-pos/internal/entity"
	"github.com/aq2208/gorder-pos/internal/i18n"
)

const timeLayout = "15:04:05 02/01/2006"

type Field struct {
	Label string
	Value string
}

type Section struct {
	Heading string
	Fields  []Field
}

// Row is one product line, already formatted for display.
type Row struct {
	Index     string
	Code      string
	Name      string
	Quantity  string
	UnitPrice string
	Total     string
}

type Document struct {
	Title    string
	Summary  []Field
	Customer Section
	Employee Section
	Items    string
	Columns  Row
	Rows     []Row
	Closing  string
}

// Build lays out the invoice. Missing order, product or customer fields
// fail with domain.ErrRender; the employee fields may be blank.
func Build(data domain.InvoiceData, tr *i18n.Translator, loc *time.Location) (Document, error) {
	o := data.Order
	c := data.Customer
	if loc == nil {
		loc = time.UTC
	}

	if strings.TrimSpace(o.ID) == "" {
		return Document{}, fmt.Errorf("%w: order id is empty", domain.ErrRender)
	}
	if len(o.Items) == 0 {
		return Document{}, fmt.Errorf("%w: order %s has no items", domain.ErrRender, o.ID)
	}
	if c.Name == "" || c.Phone == "" || c.Address == "" {
		return Document{}, fmt.Errorf("%w: customer fields missing for order %s", domain.ErrRender, o.ID)
	}

	doc := Document{
		Title: tr.T(i18n.InvTitle),
		Summary: []Field{
			{tr.T(i18n.InvOrderID), o.ID},
			{tr.T(i18n.InvCreatedAt), o.CreatedAt.In(loc).Format(timeLayout)},
			{tr.T(i18n.InvTotal), tr.Money(o.TotalPrice)},
			{tr.T(i18n.InvAmountPaid), tr.Money(o.Payment.AmountPaid)},
			{tr.T(i18n.InvChange), tr.Money(o.Payment.Change)},
		},
		Customer: Section{
			Heading: tr.T(i18n.InvCustomerHeading),
			Fields: []Field{
				{tr.T(i18n.InvCustomerName), c.Name},
				{tr.T(i18n.InvCustomerPhone), c.Phone},
				{tr.T(i18n.InvCustomerAddress), c.Address},
			},
		},
		Employee: Section{
			Heading: tr.T(i18n.InvEmployeeHeading),
			Fields: []Field{
				{tr.T(i18n.InvEmployeeID), data.EmployeeID},
				{tr.T(i18n.InvEmployeeName), data.EmployeeName},
			},
		},
		Items: tr.T(i18n.InvItemsHeading),
		Columns: Row{
			Index:     tr.T(i18n.InvColIndex),
			Code:      tr.T(i18n.InvColCode),
			Name:      tr.T(i18n.InvColName),
			Quantity:  tr.T(i18n.InvColQuantity),
			UnitPrice: tr.T(i18n.InvColUnitPrice),
			Total:     tr.T(i18n.InvColTotal),
		},
		Closing: tr.T(i18n.InvClosing),
	}

	for i, it := range o.Items {
		if it.Barcode == "" || it.Name == "" || it.Quantity <= 0 {
			return Document{}, fmt.Errorf("%w: line %d of order %s is incomplete", domain.ErrRender, i+1, o.ID)
		}
		doc.Rows = append(doc.Rows, Row{
			Index:     strconv.Itoa(i + 1),
			Code:      it.Barcode,
			Name:      it.Name,
			Quantity:  tr.Number(int64(it.Quantity)),
			UnitPrice: tr.Money(it.UnitPrice),
			Total:     tr.Money(it.Total),
		})
	}
	return doc, nil
}
