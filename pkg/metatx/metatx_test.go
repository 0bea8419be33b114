package metatx

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func testMetaTx() *MetaTx {
	return &MetaTx{
		Domain: Domain{
			Name:              "MetaTxRelay",
			Version:           "1",
			ChainID:           1,
			VerifyingContract: "0x1000000000000000000000000000000000000001",
		},
		Message: Message{
			From:          "0x2000000000000000000000000000000000000002",
			To:            "0x3000000000000000000000000000000000000003",
			TokenContract: "0x6b175474e89094c44da98b954eedeac495271d0f",
			Amount:        "20300",
			Nonce:         "7",
			Expiry:        "1893456000",
		},
	}
}

func TestRecoverSigner_RoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	mtx := testMetaTx()
	digest, err := mtx.Digest()
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatal(err)
	}
	mtx.Signature = hexutil.Encode(sig)
	mtx.ClaimedAddr = addr.Hex()

	recovered, err := mtx.RecoverSigner()
	if err != nil {
		t.Fatalf("RecoverSigner failed: %v", err)
	}
	if recovered != addr {
		t.Errorf("Recovered %s, expected %s", recovered.Hex(), addr.Hex())
	}
}

func TestRecoverSigner_AcceptsLegacyRecoveryID(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	mtx := testMetaTx()
	digest, err := mtx.Digest()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatal(err)
	}
	// Wallets commonly emit v as 27/28.
	sig[64] += 27
	mtx.Signature = hexutil.Encode(sig)

	recovered, err := mtx.RecoverSigner()
	if err != nil {
		t.Fatalf("RecoverSigner failed: %v", err)
	}
	if recovered != addr {
		t.Errorf("Recovered %s, expected %s", recovered.Hex(), addr.Hex())
	}
}

func TestRecoverSigner_DifferentMessageDifferentSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)

	mtx := testMetaTx()
	digest, err := mtx.Digest()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatal(err)
	}

	// Same signature over a tampered message must not recover the signer.
	tampered := testMetaTx()
	tampered.Message.Amount = "1"
	tampered.Signature = hexutil.Encode(sig)

	recovered, err := tampered.RecoverSigner()
	if err == nil && recovered == addr {
		t.Error("Tampered message recovered the original signer")
	}
}

func TestRecoverSigner_RejectsMalformedSignatures(t *testing.T) {
	mtx := testMetaTx()
	for _, sig := range []string{"", "0x1234", "not-hex"} {
		mtx.Signature = sig
		if _, err := mtx.RecoverSigner(); err == nil {
			t.Errorf("Expected error for signature %q", sig)
		}
	}
}

func TestMessageParsers(t *testing.T) {
	mtx := testMetaTx()

	amount, err := mtx.AmountInt()
	if err != nil || amount.Int64() != 20300 {
		t.Errorf("AmountInt = %v, %v", amount, err)
	}
	nonce, err := mtx.NonceInt()
	if err != nil || nonce.Int64() != 7 {
		t.Errorf("NonceInt = %v, %v", nonce, err)
	}

	mtx.Message.Nonce = "-1"
	if _, err := mtx.NonceInt(); err == nil {
		t.Error("Expected negative nonce to be rejected")
	}
	mtx.Message.Amount = "12.5"
	if _, err := mtx.AmountInt(); err == nil {
		t.Error("Expected non-integer amount to be rejected")
	}
}
