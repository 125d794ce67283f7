package workload

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

// Sign produces one randomized ML-DSA-65 signature per run.
type Sign struct {
	pub  *mldsa65.PublicKey
	priv *mldsa65.PrivateKey
	msg  []byte
	sig  []byte
}

func NewSign(cfg Config) (*Sign, error) {
	pub, priv, err := mldsa65.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ML-DSA key: %w", err)
	}
	msg := cfg.Message
	if len(msg) == 0 {
		msg = DefaultConfig().Message
	}
	return &Sign{
		pub:  pub,
		priv: priv,
		msg:  msg,
		sig:  make([]byte, mldsa65.SignatureSize),
	}, nil
}

func (s *Sign) Name() string { return "sign" }

func (s *Sign) Run() error {
	if s.priv == nil {
		return ErrClosed
	}
	return mldsa65.SignTo(s.priv, s.msg, nil, true, s.sig)
}

// Verify checks the signature from the last Run.
func (s *Sign) Verify() error {
	if !mldsa65.Verify(s.pub, s.msg, nil, s.sig) {
		return errors.New("ML-DSA signature did not verify")
	}
	return nil
}

func (s *Sign) Close() error {
	s.priv = nil
	return nil
}
