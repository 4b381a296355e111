package cryptomkt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentExpiry is how long a payment order accepts payments after creation.
const PaymentExpiry = 15 * time.Minute

// ExpireTimeLayout is the civil time layout used to display expiry times.
const ExpireTimeLayout = "2006-01-02 15:04:05"

// PaymentStatus is the state of a payment order. It is assigned by the
// exchange only.
type PaymentStatus int

const (
	PaymentStatusMultiplePayment    PaymentStatus = -4
	PaymentStatusAmountMismatch     PaymentStatus = -3
	PaymentStatusConversionFailed   PaymentStatus = -2
	PaymentStatusExpired            PaymentStatus = -1
	PaymentStatusAwaitingPayment    PaymentStatus = 0
	PaymentStatusAwaitingBlock      PaymentStatus = 1
	PaymentStatusAwaitingProcessing PaymentStatus = 2
	PaymentStatusSuccess            PaymentStatus = 3
)

// StatusColor is the severity class of a payment status.
type StatusColor string

const (
	StatusColorDanger  StatusColor = "danger"
	StatusColorInfo    StatusColor = "info"
	StatusColorWarning StatusColor = "warning"
	StatusColorSuccess StatusColor = "success"
)

var paymentStatusMessages = map[PaymentStatus]string{
	PaymentStatusMultiplePayment:    "multiple payment",
	PaymentStatusAmountMismatch:     "amount mismatch",
	PaymentStatusConversionFailed:   "conversion failed",
	PaymentStatusExpired:            "expired",
	PaymentStatusAwaitingPayment:    "awaiting payment",
	PaymentStatusAwaitingBlock:      "awaiting confirmation block",
	PaymentStatusAwaitingProcessing: "awaiting processing",
	PaymentStatusSuccess:            "success",
}

// PaymentStatuses returns every known status in ascending order.
func PaymentStatuses() []PaymentStatus {
	statuses := make([]PaymentStatus, 0, len(paymentStatusMessages))
	for s := range paymentStatusMessages {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	return statuses
}

// Valid reports whether s is part of the documented status table.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatusMessages[s]
	return ok
}

// Message returns the description of the status.
func (s PaymentStatus) Message() (string, error) {
	msg, ok := paymentStatusMessages[s]
	if !ok {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown payment status %d", int(s))}
	}
	return msg, nil
}

// Color returns the severity class of the status.
func (s PaymentStatus) Color() (StatusColor, error) {
	switch {
	case !s.Valid():
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown payment status %d", int(s))}
	case s < 0:
		return StatusColorDanger, nil
	case s == PaymentStatusAwaitingPayment:
		return StatusColorInfo, nil
	case s == PaymentStatusSuccess:
		return StatusColorSuccess, nil
	default:
		return StatusColorWarning, nil
	}
}

// IsTerminal reports whether the exchange will no longer change the status.
func (s PaymentStatus) IsTerminal() bool {
	return s.Valid() && (s < 0 || s == PaymentStatusSuccess)
}

func (s PaymentStatus) String() string {
	if msg, err := s.Message(); err == nil {
		return msg
	}
	return strconv.Itoa(int(s))
}

// PaymentOrder is a request for the exchange to collect a payment on behalf
// of a receiver account. The first group of fields is written by the caller
// before creation; the second group is assigned by the exchange and is only
// written when a response is decoded.
type PaymentOrder struct {
	toReceive         decimal.NullDecimal
	toReceiveCurrency string
	paymentReceiver   string
	externalID        string
	callbackURL       string
	errorURL          string
	successURL        string

	id               string
	status           *PaymentStatus
	depositAddress   string
	expectedCurrency string
	expectedAmount   decimal.NullDecimal
	createdAt        time.Time
	updatedAt        time.Time
	qr               string
	paymentURL       string
	obs              string
}

// NewPaymentOrder returns an empty payment order.
func NewPaymentOrder() *PaymentOrder {
	return &PaymentOrder{}
}

// SetToReceive sets the amount to collect, in ToReceiveCurrency.
func (o *PaymentOrder) SetToReceive(amount decimal.Decimal) *PaymentOrder {
	o.toReceive = decimal.NullDecimal{Decimal: amount, Valid: true}
	return o
}

// SetToReceiveCurrency sets the currency the receiver is paid in.
func (o *PaymentOrder) SetToReceiveCurrency(currency string) *PaymentOrder {
	o.toReceiveCurrency = currency
	return o
}

// SetPaymentReceiver sets the email of the registered account receiving the payment.
func (o *PaymentOrder) SetPaymentReceiver(email string) *PaymentOrder {
	o.paymentReceiver = email
	return o
}

// SetExternalID links the payment order to a merchant order (max. 64 characters).
func (o *PaymentOrder) SetExternalID(id string) *PaymentOrder {
	o.externalID = id
	return o
}

// SetCallbackURL sets the URL notified on status changes (max. 256 characters).
func (o *PaymentOrder) SetCallbackURL(u string) *PaymentOrder {
	o.callbackURL = u
	return o
}

// SetErrorURL sets the redirect URL used on failure.
func (o *PaymentOrder) SetErrorURL(u string) *PaymentOrder {
	o.errorURL = u
	return o
}

// SetSuccessURL sets the redirect URL used on success.
func (o *PaymentOrder) SetSuccessURL(u string) *PaymentOrder {
	o.successURL = u
	return o
}

func (o *PaymentOrder) ToReceive() decimal.NullDecimal { return o.toReceive }
func (o *PaymentOrder) ToReceiveCurrency() string { return o.toReceiveCurrency }
func (o *PaymentOrder) PaymentReceiver() string { return o.paymentReceiver }
func (o *PaymentOrder) ExternalID() string { return o.externalID }
func (o *PaymentOrder) CallbackURL() string { return o.callbackURL }
func (o *PaymentOrder) ErrorURL() string { return o.errorURL }
func (o *PaymentOrder) SuccessURL() string { return o.successURL }
func (o *PaymentOrder) ID() string { return o.id }
func (o *PaymentOrder) DepositAddress() string { return o.depositAddress }
func (o *PaymentOrder) ExpectedCurrency() string { return o.expectedCurrency }
func (o *PaymentOrder) ExpectedAmount() decimal.NullDecimal { return o.expectedAmount }
func (o *PaymentOrder) CreatedAt() time.Time { return o.createdAt }
func (o *PaymentOrder) UpdatedAt() time.Time { return o.updatedAt }
func (o *PaymentOrder) QR() string { return o.qr }
func (o *PaymentOrder) PaymentURL() string { return o.paymentURL }
func (o *PaymentOrder) Obs() string { return o.obs }

// URL is an alias of PaymentURL.
func (o *PaymentOrder) URL() string {
	return o.paymentURL
}

// Status returns the status assigned by the exchange.
func (o *PaymentOrder) Status() (PaymentStatus, error) {
	if o.status == nil {
		return 0, &ValidationError{Field: "status", Reason: "payment order has no status"}
	}
	return *o.status, nil
}

// StatusMessage returns the description of the order status.
func (o *PaymentOrder) StatusMessage() (string, error) {
	s, err := o.Status()
	if err != nil {
		return "", err
	}
	return s.Message()
}

// StatusColor returns the severity class of the order status.
func (o *PaymentOrder) StatusColor() (StatusColor, error) {
	s, err := o.Status()
	if err != nil {
		return "", err
	}
	return s.Color()
}

// ExpireTime returns the time, in local civil time, after which the order
// stops accepting payments.
func (o *PaymentOrder) ExpireTime() (time.Time, error) {
	if o.createdAt.IsZero() {
		return time.Time{}, &ValidationError{Field: "created_at", Reason: "payment order has no creation time"}
	}
	return o.createdAt.Add(PaymentExpiry).In(time.Local), nil
}

// Data returns the caller-writable fields that are set, as sent when the
// order is created. Server-assigned fields are never included.
func (o *PaymentOrder) Data() Params {
	data := Params{}
	if o.toReceive.Valid {
		data["to_receive"] = o.toReceive.Decimal
	}

	for k, v := range map[string]string{
		"to_receive_currency": o.toReceiveCurrency,
		"payment_receiver":    o.paymentReceiver,
		"external_id":         o.externalID,
		"callback_url":        o.callbackURL,
		"error_url":           o.errorURL,
		"success_url":         o.successURL,
	} {
		if v != "" {
			data[k] = v
		}
	}

	return data
}

// validate checks the fields required to create the order.
func (o *PaymentOrder) validate() error {
	if !o.toReceive.Valid || !o.toReceive.Decimal.IsPositive() {
		return &ValidationError{Field: "to_receive", Reason: "a positive amount is required"}
	}
	if o.toReceiveCurrency == "" {
		return &ValidationError{Field: "to_receive_currency", Reason: "currency is required"}
	}
	if o.paymentReceiver == "" {
		return &ValidationError{Field: "payment_receiver", Reason: "receiver email is required"}
	}
	return nil
}

// paymentOrderJSON is the wire form of a payment order.
type paymentOrderJSON struct {
	ToReceive         *decimal.Decimal `json:"to_receive,omitempty"`
	ToReceiveCurrency string           `json:"to_receive_currency,omitempty"`
	PaymentReceiver   string           `json:"payment_receiver,omitempty"`
	ExternalID        string           `json:"external_id,omitempty"`
	CallbackURL       string           `json:"callback_url,omitempty"`
	ErrorURL          string           `json:"error_url,omitempty"`
	SuccessURL        string           `json:"success_url,omitempty"`

	ID               flexString       `json:"id,omitempty"`
	Status           json.RawMessage  `json:"status,omitempty"`
	DepositAddress   string           `json:"deposit_address,omitempty"`
	ExpectedCurrency string           `json:"expected_currency,omitempty"`
	ExpectedAmount   *decimal.Decimal `json:"expected_amount,omitempty"`
	CreatedAt        string           `json:"created_at,omitempty"`
	UpdatedAt        string           `json:"updated_at,omitempty"`
	QR               string           `json:"qr,omitempty"`
	PaymentURL       string           `json:"payment_url,omitempty"`
	Obs              string           `json:"obs,omitempty"`
}

// UnmarshalJSON applies a server response. Server-assigned fields are
// always written; caller-writable fields only when the caller left them
// unset. A status outside the documented table is rejected.
func (o *PaymentOrder) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}

	var in paymentOrderJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	status, err := parsePaymentStatus(in.Status)
	if err != nil {
		return err
	}
	createdAt, err := parseServerTime(in.CreatedAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	updatedAt, err := parseServerTime(in.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updated_at: %w", err)
	}

	o.id = string(in.ID)
	o.status = status
	o.depositAddress = in.DepositAddress
	o.expectedCurrency = in.ExpectedCurrency
	o.expectedAmount = nullDecimal(in.ExpectedAmount)
	o.createdAt = createdAt
	o.updatedAt = updatedAt
	o.qr = in.QR
	o.paymentURL = in.PaymentURL
	o.obs = in.Obs

	if !o.toReceive.Valid {
		o.toReceive = nullDecimal(in.ToReceive)
	}
	fillString(&o.toReceiveCurrency, in.ToReceiveCurrency)
	fillString(&o.paymentReceiver, in.PaymentReceiver)
	fillString(&o.externalID, in.ExternalID)
	fillString(&o.callbackURL, in.CallbackURL)
	fillString(&o.errorURL, in.ErrorURL)
	fillString(&o.successURL, in.SuccessURL)

	return nil
}

// MarshalJSON renders every set field, for display.
func (o *PaymentOrder) MarshalJSON() ([]byte, error) {
	out := paymentOrderJSON{
		ToReceive:         decimalPtr(o.toReceive),
		ToReceiveCurrency: o.toReceiveCurrency,
		PaymentReceiver:   o.paymentReceiver,
		ExternalID:        o.externalID,
		CallbackURL:       o.callbackURL,
		ErrorURL:          o.errorURL,
		SuccessURL:        o.successURL,
		ID:                flexString(o.id),
		DepositAddress:    o.depositAddress,
		ExpectedCurrency:  o.expectedCurrency,
		ExpectedAmount:    decimalPtr(o.expectedAmount),
		QR:                o.qr,
		PaymentURL:        o.paymentURL,
		Obs:               o.obs,
	}
	if o.status != nil {
		out.Status = json.RawMessage(strconv.Itoa(int(*o.status)))
	}
	if !o.createdAt.IsZero() {
		out.CreatedAt = o.createdAt.Format(time.RFC3339)
	}
	if !o.updatedAt.IsZero() {
		out.UpdatedAt = o.updatedAt.Format(time.RFC3339)
	}
	return json.Marshal(out)
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	return &d.Decimal
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// parsePaymentStatus reads a status given as a JSON number or numeric
// string. A missing status yields nil.
func parsePaymentStatus(raw json.RawMessage) (*PaymentStatus, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var text flexString
	if err := text.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	n, err := strconv.Atoi(string(text))
	if err != nil {
		return nil, fmt.Errorf("status: %q is not a number", string(text))
	}

	s := PaymentStatus(n)
	if !s.Valid() {
		return nil, fmt.Errorf("status: unknown payment status %d", n)
	}
	return &s, nil
}

var serverTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseServerTime parses a timestamp sent by the exchange. Timestamps
// without a zone are UTC.
func parseServerTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range serverTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
