package errors

import "fmt"

// UserReadableError exposes a stable short code safe to show to end users.
type UserReadableError interface {
	error
	GetError() string
}

// WalletPlatform is the single-letter prefix of a wallet error code.
type WalletPlatform string

const (
	PlatformApple  WalletPlatform = "A"
	PlatformGoogle WalletPlatform = "G"
)

// WalletErrorType is the numeric suffix of a wallet error code.
type WalletErrorType string

// Apple wallet failures.
const (
	AppleGeneratePass         WalletErrorType = "001"
	AppleSendPassNotification WalletErrorType = "002"
)

// Google wallet failures.
const (
	GoogleInitialization   WalletErrorType = "001"
	GoogleSendNotification WalletErrorType = "002"
	GoogleCreatePass       WalletErrorType = "003"
	GoogleGetObject        WalletErrorType = "004"
	GoogleUpdatePass       WalletErrorType = "005"
	GoogleCreateClass      WalletErrorType = "006"
)

// WalletError wraps an SDK failure with a stable code such as "G-005".
// The cause is kept for logs and errors.Is/As; it is not part of the contract.
type WalletError struct {
	Platform WalletPlatform
	Type     WalletErrorType
	Err      error
}

// NewAppleError wraps err as an Apple wallet failure.
func NewAppleError(t WalletErrorType, err error) *WalletError {
	return &WalletError{Platform: PlatformApple, Type: t, Err: err}
}

// NewGoogleError wraps err as a Google wallet failure.
func NewGoogleError(t WalletErrorType, err error) *WalletError {
	return &WalletError{Platform: PlatformGoogle, Type: t, Err: err}
}

// GetError returns the stable code.
func (e *WalletError) GetError() string {
	return fmt.Sprintf("%s-%s", e.Platform, e.Type)
}

func (e *WalletError) Error() string {
	name := "Google Wallet"
	if e.Platform == PlatformApple {
		name = "Apple Wallet"
	}
	return fmt.Sprintf("%s error: %s", name, e.GetError())
}

func (e *WalletError) Unwrap() error {
	return e.Err
}
