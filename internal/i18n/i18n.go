// Package i18n holds the user-facing strings of the service and the
// locale-aware money formatting used by responses and invoices.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys double as the English text.
const (
	MsgOrderCreated         = "Order created successfully."
	MsgOrderReplayed        = "Order already processed for this request."
	MsgCartEmpty            = "The product list must not be empty."
	MsgPhoneRequired        = "Please enter the customer's phone number."
	MsgEmployeeRequired     = "Employee information was not found."
	MsgInvalidRequest       = "The request is invalid."
	MsgNewCustomerFields    = "A new customer needs a name and an address."
	MsgProductNotFound      = "One of the products was not found."
	MsgPriceChanged         = "Product prices have changed, please refresh the cart."
	MsgInsufficientStock    = "Only %d of %s left in stock."
	MsgInsufficientPayment  = "The amount paid must not be less than the order total."
	MsgDuplicateRequest     = "This checkout is already being processed."
	MsgInvoiceNotFound      = "The invoice does not exist."
	MsgInvoiceFailed        = "The invoice could not be generated; it will be regenerated later."
	MsgInventoryNeedsReview = "Stock could not be updated for this order; a staff member must reconcile it."
	MsgOrderNotFound        = "Order not found."
	MsgCustomerNotFound     = "Customer not found."
	MsgQueryRequired        = "Please enter a search term."
	MsgInvoiceRegenerated   = "Invoice regenerated."
	MsgProductCreated       = "Product created successfully."
	MsgInvalidPrice         = "Prices must be greater than 0."
	MsgInvalidQuantity      = "Quantity must be at least 1."
	MsgInvalidImages        = "Each product must have 1 to 4 images."
	MsgBarcodeFailed        = "Could not generate a new barcode."
	MsgInternal             = "Something went wrong while %s. Please try again later."
	MsgEmployeeMismatch     = "The employee does not match the signed-in account."
	ActCheckout             = "processing the transaction"
	ActInvoice              = "downloading the invoice"
	ActLookup               = "looking up data"
	ActCreateProduct        = "creating the product"
	ActReport               = "loading the sales report"
	ActPurchaseHistory      = "loading the purchase history"
	InvTitle                = "PAYMENT INVOICE"
	InvOrderID              = "Order ID"
	InvCreatedAt            = "Created at"
	InvTotal                = "Total"
	InvAmountPaid           = "Amount paid"
	InvChange               = "Change"
	InvCustomerHeading      = "Customer information"
	InvCustomerName         = "Full name"
	InvCustomerPhone        = "Phone number"
	InvCustomerAddress      = "Address"
	InvEmployeeHeading      = "Employee information"
	InvEmployeeID           = "Employee ID"
	InvEmployeeName         = "Employee name"
	InvItemsHeading         = "Products"
	InvColIndex             = "#"
	InvColCode              = "Barcode"
	InvColName              = "Product name"
	InvColQuantity          = "Quantity"
	InvColUnitPrice         = "Unit price"
	InvColTotal             = "Line total"
	InvClosing              = "Thank you for your purchase!"
)

var vietnamese = map[string]string{
	MsgOrderCreated:         "Đơn hàng đã được tạo thành công.",
	MsgOrderReplayed:        "Đơn hàng của yêu cầu này đã được xử lý.",
	MsgCartEmpty:            "Danh sách sản phẩm không được trống.",
	MsgPhoneRequired:        "Vui lòng nhập số điện thoại khách hàng.",
	MsgEmployeeRequired:     "Không tìm thấy thông tin nhân viên.",
	MsgInvalidRequest:       "Yêu cầu không hợp lệ.",
	MsgNewCustomerFields:    "Khách hàng mới cần thông tin họ tên và địa chỉ.",
	MsgProductNotFound:      "Không tìm thấy sản phẩm.",
	MsgPriceChanged:         "Giá sản phẩm đã thay đổi, vui lòng cập nhật giỏ hàng.",
	MsgInsufficientStock:    "Chỉ còn %d sản phẩm %s trong kho.",
	MsgInsufficientPayment:  "Số tiền khách đưa không được nhỏ hơn tổng tiền đơn hàng.",
	MsgDuplicateRequest:     "Giao dịch này đang được xử lý.",
	MsgInvoiceNotFound:      "Hóa đơn không tồn tại.",
	MsgInvoiceFailed:        "Không thể tạo hóa đơn, hóa đơn sẽ được tạo lại sau.",
	MsgInventoryNeedsReview: "Không thể cập nhật tồn kho cho đơn hàng này, cần nhân viên kiểm tra lại.",
	MsgOrderNotFound:        "Không tìm thấy đơn hàng.",
	MsgCustomerNotFound:     "Không tìm thấy khách hàng.",
	MsgQueryRequired:        "Vui lòng nhập thông tin tìm kiếm!",
	MsgInvoiceRegenerated:   "Đã tạo lại hóa đơn.",
	MsgProductCreated:       "Thêm sản phẩm thành công.",
	MsgInvalidPrice:         "Giá tiền phải lớn hơn 0.",
	MsgInvalidQuantity:      "Số lượng phải lớn hơn hoặc bằng 1.",
	MsgInvalidImages:        "Mỗi sản phẩm phải có từ 1 đến 4 ảnh.",
	MsgBarcodeFailed:        "Không thể tạo barcode mới.",
	MsgInternal:             "Đã xảy ra lỗi trong quá trình %s. Vui lòng thử lại sau.",
	MsgEmployeeMismatch:     "Nhân viên không khớp với tài khoản đang đăng nhập.",
	ActCheckout:             "xử lý giao dịch",
	ActInvoice:              "tải hóa đơn",
	ActLookup:               "tra cứu dữ liệu",
	ActCreateProduct:        "thêm sản phẩm",
	ActReport:               "lấy báo cáo, thống kê",
	ActPurchaseHistory:      "lấy thông tin giao dịch khách hàng",
	InvTitle:                "HÓA ĐƠN THANH TOÁN",
	InvOrderID:              "Mã đơn hàng",
	InvCreatedAt:            "Thời gian tạo",
	InvTotal:                "Tổng tiền",
	InvAmountPaid:           "Tiền khách đưa",
	InvChange:               "Tiền trả lại",
	InvCustomerHeading:      "Thông tin khách hàng",
	InvCustomerName:         "Họ và tên",
	InvCustomerPhone:        "Số điện thoại",
	InvCustomerAddress:      "Địa chỉ",
	InvEmployeeHeading:      "Thông tin nhân viên",
	InvEmployeeID:           "Mã nhân viên",
	InvEmployeeName:         "Tên nhân viên",
	InvItemsHeading:         "Danh sách sản phẩm",
	InvColCode:              "Mã vạch",
	InvColName:              "Tên sản phẩm",
	InvColQuantity:          "Số lượng",
	InvColUnitPrice:         "Đơn giá",
	InvColTotal:             "Thành tiền",
	InvClosing:              "Cảm ơn quý khách đã mua hàng!",
}

func init() {
	for key, msg := range vietnamese {
		_ = message.SetString(language.Vietnamese, key, msg)
	}
}

// Translator renders messages and amounts for one locale.
type Translator struct {
	tag      language.Tag
	printer  *message.Printer
	currency string
}

// New builds a translator for locale (BCP 47, e.g. "vi-VN"). Unknown
// locales fall back to English.
func New(locale, currency string) *Translator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Translator{tag: tag, printer: message.NewPrinter(tag), currency: currency}
}

func (t *Translator) Tag() language.Tag { return t.tag }

func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Number groups digits with the locale's separator.
func (t *Translator) Number(v int64) string {
	return t.printer.Sprintf("%d", v)
}

// Money formats a whole-unit amount with grouping and the currency suffix.
func (t *Translator) Money(v int64) string {
	if t.currency == "" {
		return t.Number(v)
	}
	return t.Number(v) + " " + t.currency
}
