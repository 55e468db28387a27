package payment

import (
	"context"
	"errors"
	"strings"

	"wallet_chat/internal/utils/log"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	errMissingProof      = errors.New("proof requires txHash or walletId")
	errMalformedTxHash   = errors.New("txHash is not a 32-byte hex value")
	errTxReverted        = errors.New("transaction reverted")
	errNoReceiptChecker  = errors.New("no receipt validator configured")
	errNoCustodialClient = errors.New("custodial payments not configured")
)

type (
	ReceiptFetcher interface {
		TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	}

	// ChainValidator accepts a proof whose transaction was mined successfully.
	ChainValidator struct {
		receipts ReceiptFetcher
	}

	// FormatValidator only checks that txHash is well formed.
	FormatValidator struct{}

	// Router picks a validator by the shape of the proof.
	Router struct {
		Receipts  Validator
		Custodial Validator
		// TrustClientProof accepts a bare walletId when no custodial
		// client is configured.
		TrustClientProof bool
	}
)

func NewChainValidator(receipts ReceiptFetcher) *ChainValidator {
	return &ChainValidator{receipts: receipts}
}

// DialChainValidator connects to a JSON-RPC endpoint.
func DialChainValidator(ctx context.Context, rpcURL string) (*ChainValidator, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, err
	}
	return NewChainValidator(client), client, nil
}

func (v *ChainValidator) Validate(ctx context.Context, _ string, proof *Proof) error {
	hash, err := parseTxHash(proof.TxHash)
	if err != nil {
		return err
	}

	receipt, err := v.receipts.TransactionReceipt(ctx, hash)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errTxReverted
	}
	return nil
}

func (FormatValidator) Validate(_ context.Context, _ string, proof *Proof) error {
	_, err := parseTxHash(proof.TxHash)
	return err
}

func (r *Router) Validate(ctx context.Context, walletRef string, proof *Proof) error {
	switch {
	case proof.TxHash != "":
		if r.Receipts == nil {
			return errNoReceiptChecker
		}
		return r.Receipts.Validate(ctx, walletRef, proof)
	case proof.WalletID != "" || walletRef != "":
		if r.Custodial != nil {
			return r.Custodial.Validate(ctx, walletRef, proof)
		}
		if r.TrustClientProof {
			log.Warn("accepting unverified payment proof", zap.String("walletRef", walletRef))
			return nil
		}
		return errNoCustodialClient
	default:
		return errMissingProof
	}
}

func parseTxHash(s string) (common.Hash, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errMalformedTxHash
	}
	return common.BytesToHash(b), nil
}
