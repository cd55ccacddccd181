package models

// Message is a rendered OTP notification handed to a delivery provider.
type Message struct {
	To  string `json:"to"`
	OTP string `json:"otp"`
}

// Provider is an interface for a messaging backend that delivers OTP
// codes to users, for instance e-mail over SMTP or an HTTP webhook.
type Provider interface {
	// ID returns the name of the Provider.
	ID() string

	// ValidateAddress validates the 'to' address the Provider is
	// supposed to deliver the OTP to.
	ValidateAddress(to string) error

	// Push delivers a message. Depending on the Provider implementation,
	// this can either send immediately or enqueue.
	Push(msg Message, subject string, body []byte) error

	// MaxOTPLen returns the maximum allowed length of the OTP value.
	MaxOTPLen() int
}
