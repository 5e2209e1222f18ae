package domain

import "strings"

type Customer struct {
	ID      string `json:"customer_id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func NewCustomer(id, phone, name, address string) (*Customer, error) {
	phone = strings.TrimSpace(phone)
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if phone == "" || name == "" || address == "" {
		return nil, ErrValidation
	}
	return &Customer{ID: id, Name: name, Phone: phone, Address: address}, nil
}
