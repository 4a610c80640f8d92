// Package shopify implements the remote customer/credit gateway against the
// Shopify Admin GraphQL API. This file defines the gateway error taxonomy
// consumed by the reconciler.
//
// Three failure classes are distinguished because they demand different
// handling upstream:
//   - *NetworkError: connectivity/timeout failures. The attempt produced no
//     remote decision, so the record may be retried on a future pass.
//   - *RemoteError: the API answered and rejected the operation (GraphQL
//     errors or structured userErrors). Terminal for the attempt.
//   - ErrCustomerNotFound: a lookup matched nothing. Not a failure of the
//     call itself; callers usually fall through to customer creation.
package shopify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCustomerNotFound is returned by lookups that matched no customer.
var ErrCustomerNotFound = errors.New("customer not found")

// NetworkError wraps transport-level failures (DNS, connect, timeout,
// malformed response). The remote outcome is unknown.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("shopify %s: network error: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying transport error for errors.Is/As.
func (e *NetworkError) Unwrap() error { return e.Err }

// UserError is one structured validation error from a Shopify mutation's
// userErrors payload.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// RemoteError carries a definitive rejection from the Shopify API: either
// top-level GraphQL errors or a mutation's userErrors.
type RemoteError struct {
	Op         string
	UserErrors []UserError
	Messages   []string // top-level GraphQL error messages
}

// Error implements the error interface, joining all remote messages the way
// operators see them in the credit record's error column.
func (e *RemoteError) Error() string {
	parts := make([]string, 0, len(e.UserErrors)+len(e.Messages))
	for _, ue := range e.UserErrors {
		if len(ue.Field) > 0 {
			parts = append(parts, strings.Join(ue.Field, ".")+": "+ue.Message)
		} else {
			parts = append(parts, ue.Message)
		}
	}
	parts = append(parts, e.Messages...)
	if len(parts) == 0 {
		parts = append(parts, "unknown remote error")
	}
	return fmt.Sprintf("shopify %s: %s", e.Op, strings.Join(parts, ", "))
}

// IsNetwork reports whether err is (or wraps) a transport-level gateway error.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
