package googleauth

import "fmt"

// Operation names recorded in CredentialError.Op.
const (
	OpParseKey = "parse_key"
	OpSign     = "sign"
	OpExchange = "exchange"
	OpDecode   = "decode"
)

// CredentialError reports a failed token acquisition. Status and Body are set
// when the token endpoint answered with a non-2xx response.
type CredentialError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *CredentialError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("credential %s failed: status %d, body: %s", e.Op, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("credential %s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("credential %s failed: unexpected response body: %s", e.Op, e.Body)
	}
}

func (e *CredentialError) Unwrap() error { return e.Err }
