package model

// TokenDescriptor describes a registered fungible token. Path is its identity.
type TokenDescriptor struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	Symbol   string `json:"symbol,omitempty"`
	Decimals uint32 `json:"decimals"`
}
