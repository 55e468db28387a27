package model

import "time"

type (
	Challenge struct {
		Identity string    `json:"identity"`
		Nonce    string    `json:"nonce"`
		IssuedAt time.Time `json:"issuedAt"`
	}

	SessionStatus struct {
		Active      bool  `json:"active"`
		RemainingMs int64 `json:"remainingMs"`
	}

	Credential struct {
		Token     string    `json:"token"`
		Identity  string    `json:"wallet"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
)
