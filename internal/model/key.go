package model

import "time"

type (
	// KeyPair is a box keypair. SecretKey never leaves the owning client.
	KeyPair struct {
		PublicKey [32]byte
		SecretKey [32]byte
	}

	RegisteredPublicKey struct {
		Identity     string    `json:"wallet" bson:"_id"`
		PublicKey    string    `json:"pubKey" bson:"public_key"`
		RegisteredAt time.Time `json:"-" bson:"registered_at"`
	}
)
