package authflowrepo

import (
	"context"
	"time"
)

// AuthFlowState is what a login redirect must remember until the provider calls back.
type AuthFlowState struct {
	CodeVerifier string    `json:"code_verifier"`
	Nonce        string    `json:"nonce"`
	ReturnURL    string    `json:"return_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repo stores login state keyed by the OAuth state parameter. Take is single use:
// it returns the state and removes it so a callback cannot be replayed.
type Repo interface {
	Put(ctx context.Context, state string, authState AuthFlowState) error
	Take(ctx context.Context, state string) (AuthFlowState, error)
}
