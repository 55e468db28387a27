package errors

var (
	// Domain errors used by services and surfaced by the HTTP layer
	ErrInvalidIdentity   = InvalidArg("identity is empty or malformed")
	ErrMissingField      = InvalidArg("missing required field")
	ErrNonceNotFound     = FailedPrecondition("nonce not found")
	ErrInvalidSignature  = Unauthorized("invalid signature")
	ErrInvalidToken      = Unauthorized("invalid or expired token")
	ErrPublicKeyNotFound = NotFound("public key not found")
	ErrBlobNotFound      = NotFound("content not found")
	ErrNotParticipant    = NotFound("conversation not found for wallet")
	ErrDecryption        = New(CodeDecryption, "decryption failed")
	ErrPaymentFailed     = New(CodePaymentFailed, "payment failed")
)

func MissingField(name string) error {
	return Wrap(CodeInvalidArgument, name+" required", ErrMissingField)
}

func ErrPaymentRejected(cause error) error {
	return Wrap(CodePaymentFailed, "payment failed", cause)
}

func ErrTransport(op string, cause error) error {
	return Wrap(CodeUnavailable, op, cause)
}
