package domain

import "time"

type Image struct {
	Data        string `json:"data"`
	ContentType string `json:"contentType"`
}

type Product struct {
	ID          string    `json:"_id"`
	Barcode     string    `json:"barcode"`
	Name        string    `json:"name"`
	ImportPrice int64     `json:"importPrice"`
	RetailPrice int64     `json:"retailPrice"`
	CategoryID  string    `json:"category"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	Images      []Image   `json:"images"`
	InStock     bool      `json:"inStock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Normalize recomputes derived fields. Every store calls it right before a
// write that touches Quantity.
func (p *Product) Normalize() {
	p.InStock = p.Quantity > 0
}

func (p *Product) Validate() error {
	if p.Name == "" || p.CategoryID == "" || p.Description == "" {
		return ErrInvalidRequest
	}
	if p.ImportPrice <= 0 || p.RetailPrice <= 0 {
		return ErrInvalidAmount
	}
	if p.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if len(p.Images) < 1 || len(p.Images) > 4 {
		return ErrInvalidImages
	}
	return nil
}
