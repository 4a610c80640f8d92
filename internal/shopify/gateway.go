// Package shopify implements the remote customer/credit gateway against the
// Shopify Admin GraphQL API. This file defines the four gateway operations
// used by the reconciler: customer lookup, customer creation, store-credit
// granting, and tagging.
//
// The gateway is pure request/response; it keeps no local state beyond the
// HTTP client. Store-credit accounts are never pre-created here: the
// storeCreditAccountCredit mutation accepts a customer id and the platform
// auto-provisions the account when missing.
package shopify

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-credit-backend/internal/domain"
)

// RemoteCustomer is the subset of the Shopify customer object the pipeline
// needs: the global id and the email it was matched or created with.
type RemoteCustomer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// CreditGrant echoes one issued store-credit transaction.
type CreditGrant struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	ExpiresAt     time.Time
}

// Gateway exposes the remote operations over a shared Client.
type Gateway struct {
	Client *Client
}

// NewGateway wraps client in a Gateway.
func NewGateway(client *Client) *Gateway { return &Gateway{Client: client} }

const findCustomerQuery = `
query findCustomerByEmail($query: String!) {
  customers(first: 5, query: $query) {
    edges {
      node {
        id
        email
      }
    }
  }
}`

// findCustomerData is the typed response shape of findCustomerQuery.
type findCustomerData struct {
	Customers struct {
		Edges []struct {
			Node RemoteCustomer `json:"node"`
		} `json:"edges"`
	} `json:"customers"`
}

// FindCustomerByEmail looks up a customer by exact email match. It returns
// ErrCustomerNotFound when nothing matches. If the search yields several
// candidates (Shopify's search is token-based), non-exact matches are
// filtered out first; a residual ambiguity is logged and the first match is
// used rather than treated as an error.
func (g *Gateway) FindCustomerByEmail(ctx context.Context, shop *domain.Shop, email string) (*RemoteCustomer, error) {
	var data findCustomerData
	err := g.Client.execute(ctx, shop, "findCustomerByEmail", findCustomerQuery,
		map[string]any{"query": "email:" + email}, &data)
	if err != nil {
		return nil, err
	}

	matches := make([]RemoteCustomer, 0, len(data.Customers.Edges))
	for _, e := range data.Customers.Edges {
		if strings.EqualFold(e.Node.Email, email) {
			matches = append(matches, e.Node)
		}
	}
	if len(matches) == 0 {
		return nil, ErrCustomerNotFound
	}
	if len(matches) > 1 {
		log.Warn().
			Str("shop", shop.Domain).
			Int("matches", len(matches)).
			Msg("ambiguous customer lookup, using first match")
	}
	c := matches[0]
	if c.ID == "" {
		return nil, &RemoteError{Op: "findCustomerByEmail", Messages: []string{"customer node missing id"}}
	}
	return &c, nil
}

const createCustomerMutation = `
mutation createCustomer($input: CustomerInput!) {
  customerCreate(input: $input) {
    customer {
      id
      email
    }
    userErrors {
      field
      message
    }
  }
}`

// createCustomerData is the typed response shape of createCustomerMutation.
type createCustomerData struct {
	CustomerCreate *struct {
		Customer   *RemoteCustomer `json:"customer"`
		UserErrors []UserError     `json:"userErrors"`
	} `json:"customerCreate"`
}

// CreateCustomer creates a minimal customer record carrying only the email.
// No name or address fields are sent, so the call works without protected
// customer data access scopes. Remote rejections (duplicate email races
// included) surface as *RemoteError.
func (g *Gateway) CreateCustomer(ctx context.Context, shop *domain.Shop, email string) (*RemoteCustomer, error) {
	var data createCustomerData
	err := g.Client.execute(ctx, shop, "createCustomer", createCustomerMutation,
		map[string]any{"input": map[string]any{"email": email}}, &data)
	if err != nil {
		return nil, err
	}
	if data.CustomerCreate == nil {
		return nil, &RemoteError{Op: "createCustomer", Messages: []string{"missing customerCreate payload"}}
	}
	if len(data.CustomerCreate.UserErrors) > 0 {
		return nil, &RemoteError{Op: "createCustomer", UserErrors: data.CustomerCreate.UserErrors}
	}
	if data.CustomerCreate.Customer == nil || data.CustomerCreate.Customer.ID == "" {
		return nil, &RemoteError{Op: "createCustomer", Messages: []string{"no customer in response"}}
	}
	return data.CustomerCreate.Customer, nil
}

const grantCreditMutation = `
mutation grantStoreCredit($id: ID!, $creditInput: StoreCreditAccountCreditInput!) {
  storeCreditAccountCredit(id: $id, creditInput: $creditInput) {
    storeCreditAccountTransaction {
      id
      amount {
        amount
        currencyCode
      }
      expiresAt
    }
    userErrors {
      field
      message
    }
  }
}`

// grantCreditData is the typed response shape of grantCreditMutation.
type grantCreditData struct {
	StoreCreditAccountCredit *struct {
		Transaction *struct {
			ID     string `json:"id"`
			Amount struct {
				Amount       string `json:"amount"`
				CurrencyCode string `json:"currencyCode"`
			} `json:"amount"`
			ExpiresAt string `json:"expiresAt"`
		} `json:"storeCreditAccountTransaction"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"storeCreditAccountCredit"`
}

// GrantStoreCredit issues a store credit against the customer's account.
// The id passed to the mutation is the customer global id; the platform
// provisions the store-credit account automatically when the customer has
// none. Amounts are serialized as decimal strings and the expiry as an
// ISO-8601 timestamp.
func (g *Gateway) GrantStoreCredit(ctx context.Context, shop *domain.Shop, remoteCustomerID string, amount decimal.Decimal, currency string, expiresAt time.Time, note string) (*CreditGrant, error) {
	if currency == "" {
		currency = "USD"
	}
	variables := map[string]any{
		"id": remoteCustomerID,
		"creditInput": map[string]any{
			"creditAmount": map[string]any{
				"amount":       amount.StringFixed(2),
				"currencyCode": currency,
			},
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		},
	}

	var data grantCreditData
	err := g.Client.execute(ctx, shop, "grantStoreCredit", grantCreditMutation, variables, &data)
	if err != nil {
		return nil, err
	}
	payload := data.StoreCreditAccountCredit
	if payload == nil {
		return nil, &RemoteError{Op: "grantStoreCredit", Messages: []string{"missing storeCreditAccountCredit payload"}}
	}
	if len(payload.UserErrors) > 0 {
		return nil, &RemoteError{Op: "grantStoreCredit", UserErrors: payload.UserErrors}
	}
	tx := payload.Transaction
	if tx == nil || tx.ID == "" {
		return nil, &RemoteError{Op: "grantStoreCredit", Messages: []string{"no transaction in response"}}
	}

	grant := &CreditGrant{
		TransactionID: ExtractGID(tx.ID),
		Currency:      tx.Amount.CurrencyCode,
	}
	if amt, perr := decimal.NewFromString(tx.Amount.Amount); perr == nil {
		grant.Amount = amt
	} else {
		grant.Amount = amount
	}
	if ts, perr := time.Parse(time.RFC3339, tx.ExpiresAt); perr == nil {
		grant.ExpiresAt = ts
	}
	return grant, nil
}

const addTagsMutation = `
mutation addTags($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) {
    userErrors {
      field
      message
    }
  }
}`

// addTagsData is the typed response shape of addTagsMutation.
type addTagsData struct {
	TagsAdd *struct {
		UserErrors []UserError `json:"userErrors"`
	} `json:"tagsAdd"`
}

// AddTags attaches tags to the remote customer. Callers treat failures as
// non-fatal: a failed tag never rolls back a credit.
func (g *Gateway) AddTags(ctx context.Context, shop *domain.Shop, remoteCustomerID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	var data addTagsData
	err := g.Client.execute(ctx, shop, "addTags", addTagsMutation,
		map[string]any{"id": remoteCustomerID, "tags": tags}, &data)
	if err != nil {
		return err
	}
	if data.TagsAdd != nil && len(data.TagsAdd.UserErrors) > 0 {
		return &RemoteError{Op: "addTags", UserErrors: data.TagsAdd.UserErrors}
	}
	return nil
}

// ExtractGID returns the trailing numeric segment of a Shopify global id,
// e.g. "gid://shopify/StoreCreditAccountTransaction/123" → "123". Unshaped
// input is returned unchanged.
func ExtractGID(gid string) string {
	if i := strings.LastIndex(gid, "/"); i >= 0 && i+1 < len(gid) {
		return gid[i+1:]
	}
	return gid
}
