package domain

// InvoiceData is everything the invoice layout needs: the committed order
// plus the customer and employee fields resolved for display.
type InvoiceData struct {
	Order        Order
	Customer     Customer
	EmployeeID   string
	EmployeeName string
}
