// Package token issues and verifies the bearer capability bound to one trade.
//
// Token layout (104 bytes, base64-encoded at rest):
//
//	[0:32)   SHA-256 digest of the UTI
//	[32:40)  reserved, zero (room for an expiry that is not enforced)
//	[40:104) Ed25519 signature by the ledger identity over the base64
//	         encoding of the first 40 bytes
//
// Ledger operations authorize with a plain byte-equality check against the
// token stored on the trade; full Verify exists for contexts where the token
// crosses a trust boundary the ledger does not control.
package token

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	dErrors "tradeledger/pkg/domain-errors"
)

const (
	digestLen = sha256.Size
	bodyLen   = digestLen + 8
	tokenLen  = bodyLen + ed25519.SignatureSize
)

// Issuer signs capability tokens with the ledger's private identity.
type Issuer struct {
	key ed25519.PrivateKey
}

func NewIssuer(key ed25519.PrivateKey) *Issuer {
	return &Issuer{key: key}
}

// Issue builds the token for a UTI and returns it base64-encoded. The token
// is handed to the submitter exactly once; it cannot be re-derived later
// without the signing key.
func (i *Issuer) Issue(uti string) (string, error) {
	if len(i.key) != ed25519.PrivateKeySize {
		return "", dErrors.New(dErrors.CodeInvalidState, "ledger signing identity is not set")
	}

	digest := sha256.Sum256([]byte(uti))
	body := make([]byte, bodyLen)
	copy(body, digest[:])
	// Bytes [32:40) stay zero until token expiry is enforced.

	signature := ed25519.Sign(i.key, []byte(base64.StdEncoding.EncodeToString(body)))

	tok := make([]byte, 0, tokenLen)
	tok = append(tok, body...)
	tok = append(tok, signature...)
	return base64.StdEncoding.EncodeToString(tok), nil
}

// Verify checks a token end to end against a UTI and the issuer's public key:
// length, UTI digest, and signature. It fails closed on any mismatch.
func Verify(pub ed25519.PublicKey, uti, tokenB64 string) error {
	tok, err := base64.StdEncoding.DecodeString(tokenB64)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "trade token is not valid base64")
	}
	if len(tok) != tokenLen {
		return dErrors.New(dErrors.CodeBadRequest, "trade token size is invalid")
	}

	digest := sha256.Sum256([]byte(uti))
	if subtle.ConstantTimeCompare(tok[:digestLen], digest[:]) != 1 {
		return dErrors.New(dErrors.CodeUnauthorized, "trade token refers to the wrong trade")
	}

	body := tok[:bodyLen]
	signature := tok[bodyLen:]
	if !ed25519.Verify(pub, []byte(base64.StdEncoding.EncodeToString(body)), signature) {
		return dErrors.New(dErrors.CodeUnauthorized, "trade token signature is invalid")
	}
	return nil
}
